package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clientdesk/pkg/domain"
	dErrors "clientdesk/pkg/domain-errors"
)

func TestNewDraft(t *testing.T) {
	t.Run("trims fields and keeps email case", func(t *testing.T) {
		d, err := NewDraft("  Lola ", " Lola@Email.com ", " 5550001111 ")
		require.NoError(t, err)
		assert.Equal(t, Draft{Name: "Lola", Email: "Lola@Email.com", Phone: "5550001111"}, d)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := NewDraft("   ", "lola@email.com", "555")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects oversized name", func(t *testing.T) {
		_, err := NewDraft(strings.Repeat("a", MaxNameLength+1), "lola@email.com", "555")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "128 characters")
	})

	t.Run("counts accented names in characters", func(t *testing.T) {
		d, err := NewDraft(strings.Repeat("é", MaxNameLength), "lola@email.com", "555")
		require.NoError(t, err)
		assert.Len(t, []rune(d.Name), MaxNameLength)

		_, err = NewDraft(strings.Repeat("é", MaxNameLength+1), "lola@email.com", "555")
		require.Error(t, err)
	})

	t.Run("rejects blank email", func(t *testing.T) {
		_, err := NewDraft("Lola", "  ", "555")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestNewClient(t *testing.T) {
	t.Run("requires a positive id", func(t *testing.T) {
		_, err := NewClient(0, "Lola", "lola@email.com", "555")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("builds the record", func(t *testing.T) {
		c, err := NewClient(id.ClientID(7), "Lola", "LOLA@email.com", "555")
		require.NoError(t, err)
		assert.Equal(t, id.ClientID(7), c.ID)
		assert.Equal(t, "lola@email.com", c.EmailKey())
	})
}

func TestClone(t *testing.T) {
	c := &Client{ID: 1, Name: "Juan", Email: "juan@email.com", Phone: "5512345678"}
	cp := c.Clone()
	cp.Name = "changed"
	assert.Equal(t, "Juan", c.Name)
}
