package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{NotFoundf("entity %s", "e1"), KindNotFound},
		{Duplicatef("name %q", "x"), KindDuplicateName},
		{Danglingf("edge %s", "r1"), KindDanglingReference},
		{Validationf("bad"), KindValidation},
		{UnknownVersionf("9.9"), KindUnknownVersion},
		{Storage(stderrors.New("disk I/O"), "read"), KindStorage},
		{stderrors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}

func TestKind_SurvivesWrapping(t *testing.T) {
	err := Wrap(Wrapf(NotFoundf("entity %s", "e1"), "load"), "get_context")
	assert.Equal(t, KindNotFound, Kind(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Contains(t, Message(err), "entity e1")
}

func TestStorage(t *testing.T) {
	assert.Nil(t, Storage(nil, "op"))

	typed := Validationf("confidence out of range")
	assert.Same(t, typed, Storage(typed, "op"), "typed errors pass through")

	err := Storage(stderrors.New("locked"), "commit")
	assert.True(t, Is(err, ErrStorage))
	assert.Contains(t, Message(err), "commit")
	assert.Contains(t, Message(err), "locked")
}
