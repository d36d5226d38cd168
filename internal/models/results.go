package models

// ContextNode is one entity reached by a traversal.
type ContextNode struct {
	Entity       Entity        `json:"entity"`
	Depth        int           `json:"depth"`
	Observations []Observation `json:"observations"`
}

// Context is the subgraph returned by context retrieval. Nodes are in
// discovery order; Edges holds the relationship used to reach each
// non-root node.
type Context struct {
	RootID string         `json:"root_id"`
	Nodes  []ContextNode  `json:"nodes"`
	Edges  []Relationship `json:"edges"`
}

// Classification of a single schema change between two versions.
type Classification string

const (
	ClassBreaking          Classification = "breaking"
	ClassDeprecatedRemoval Classification = "deprecated-removal"
	ClassNonBreaking       Classification = "non-breaking"
)

// Severity is the rollup of a diff: the worst classification present.
type Severity string

const (
	SeverityNone              Severity = "none"
	SeverityNonBreaking       Severity = "non-breaking"
	SeverityDeprecatedRemoval Severity = "deprecated-removal"
	SeverityBreaking          Severity = "breaking"
)

// ChangeKind describes which aspect of an argument changed.
type ChangeKind string

const (
	ChangeAdded          ChangeKind = "added"
	ChangeRemoved        ChangeKind = "removed"
	ChangeNowRequired    ChangeKind = "now-required"
	ChangeNowOptional    ChangeKind = "now-optional"
	ChangeNarrowed       ChangeKind = "narrowed"
	ChangeWidened        ChangeKind = "widened"
	ChangeTypeChanged    ChangeKind = "type-changed"
	ChangeDefaultChanged ChangeKind = "default-changed"
	ChangeDeprecated     ChangeKind = "deprecated"
)

// Change is one classified difference for one argument or parameter.
type Change struct {
	Name           string         `json:"name"`
	Kind           ChangeKind     `json:"kind"`
	Classification Classification `json:"classification"`
	Detail         string         `json:"detail,omitempty"`
}

// VersionDiff partitions the changes between two versions of a resource or module.
type VersionDiff struct {
	Ref                string   `json:"ref"`
	FromVersion        string   `json:"from_version"`
	ToVersion          string   `json:"to_version"`
	Breaking           []Change `json:"breaking"`
	DeprecatedRemovals []Change `json:"deprecated_removals"`
	NonBreaking        []Change `json:"non_breaking"`
	Severity           Severity `json:"severity"`
}

// Changes returns every change, breaking first.
func (d VersionDiff) Changes() []Change {
	out := make([]Change, 0, len(d.Breaking)+len(d.DeprecatedRemovals)+len(d.NonBreaking))
	out = append(out, d.Breaking...)
	out = append(out, d.DeprecatedRemovals...)
	return append(out, d.NonBreaking...)
}

// CompatibilityStatus is the overall verdict of a compatibility check.
type CompatibilityStatus string

const (
	StatusCompatible             CompatibilityStatus = "compatible"
	StatusCompatibleWithWarnings CompatibilityStatus = "compatible-with-warnings"
	StatusIncompatible           CompatibilityStatus = "incompatible"
)

// IssueKind classifies one compatibility finding.
type IssueKind string

const (
	IssueMissing             IssueKind = "missing"
	IssueNowRequiredButUnset IssueKind = "now-required-but-unset"
	IssueDeprecated          IssueKind = "deprecated"
)

// CompatibilityIssue is one finding for one argument name.
type CompatibilityIssue struct {
	Name          string    `json:"name"`
	Kind          IssueKind `json:"kind"`
	NewlyRequired bool      `json:"newly_required,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}

// CompatibilityReport classifies whether a usage remains valid at a target version.
type CompatibilityReport struct {
	Ref             string               `json:"ref"`
	TargetVersion   string               `json:"target_version"`
	PreviousVersion string               `json:"previous_version,omitempty"`
	UsedArguments   []string             `json:"used_arguments"`
	Status          CompatibilityStatus  `json:"status"`
	Issues          []CompatibilityIssue `json:"issues"`
}
