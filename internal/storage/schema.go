package storage

// Schema is the SQL schema of the memory database.
//
// Relationships carry no foreign keys on their endpoints: deleting an entity
// leaves its relationships in place for audit, and traversal reports them as
// dangling until they are pruned.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    metadata    TEXT NOT NULL DEFAULT '{}',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    deleted_at  TEXT NULL,
    CHECK (updated_at >= created_at)
);

CREATE TABLE IF NOT EXISTS relationships (
    id                TEXT PRIMARY KEY,
    source_id         TEXT NOT NULL,
    target_id         TEXT NOT NULL,
    relationship_type TEXT NOT NULL,
    metadata          TEXT NOT NULL DEFAULT '{}',
    created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS observations (
    id               TEXT PRIMARY KEY,
    entity_id        TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    observation_type TEXT NOT NULL,
    content          TEXT NOT NULL,
    confidence       REAL NOT NULL DEFAULT 1.0 CHECK (confidence >= 0.0 AND confidence <= 1.0),
    metadata         TEXT NOT NULL DEFAULT '{}',
    created_at       TEXT NOT NULL,
    deleted_at       TEXT NULL
);

CREATE TABLE IF NOT EXISTS provider_resources (
    id             TEXT PRIMARY KEY,
    provider       TEXT NOT NULL,
    resource_type  TEXT NOT NULL,
    schema_version TEXT NOT NULL,
    doc_url        TEXT NOT NULL DEFAULT '',
    last_verified  TEXT NULL,
    UNIQUE (provider, resource_type, schema_version)
);

CREATE TABLE IF NOT EXISTS resource_arguments (
    id              TEXT PRIMARY KEY,
    resource_id     TEXT NOT NULL REFERENCES provider_resources(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    arg_type        TEXT NOT NULL DEFAULT '',
    required        INTEGER NOT NULL DEFAULT 0,
    default_value   TEXT NOT NULL DEFAULT '',
    validation_rule TEXT NOT NULL DEFAULT '',
    deprecated      INTEGER NOT NULL DEFAULT 0,
    UNIQUE (resource_id, name)
);

CREATE TABLE IF NOT EXISTS ansible_collections (
    id            TEXT PRIMARY KEY,
    namespace     TEXT NOT NULL,
    name          TEXT NOT NULL,
    module_name   TEXT NOT NULL,
    version       TEXT NOT NULL,
    doc_url       TEXT NOT NULL DEFAULT '',
    last_verified TEXT NULL,
    UNIQUE (namespace, name, module_name, version)
);

CREATE TABLE IF NOT EXISTS module_parameters (
    id            TEXT PRIMARY KEY,
    module_ref    TEXT NOT NULL REFERENCES ansible_collections(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    param_type    TEXT NOT NULL DEFAULT '',
    required      INTEGER NOT NULL DEFAULT 0,
    default_value TEXT NOT NULL DEFAULT '',
    choices       TEXT NOT NULL DEFAULT '[]',
    version_added TEXT NOT NULL DEFAULT '',
    deprecated    INTEGER NOT NULL DEFAULT 0,
    UNIQUE (module_ref, name)
);

-- Entity names are unique among live (non-deleted) entities only.
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_live_name ON entities(name) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_entities_updated ON entities(updated_at) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_observations_entity ON observations(entity_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);
CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(relationship_type);
CREATE INDEX IF NOT EXISTS idx_provider_resources_type ON provider_resources(resource_type);
CREATE INDEX IF NOT EXISTS idx_ansible_collections_module ON ansible_collections(namespace, name, module_name);
`

// dsnPragmas configures SQLite through the ncruces driver's _pragma parameters.
const dsnPragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)"
