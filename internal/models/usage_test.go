package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit_UnmarshalJSON(t *testing.T) {
	t.Run("число дает конечный лимит", func(t *testing.T) {
		var l Limit
		require.NoError(t, json.Unmarshal([]byte(`25`), &l))
		assert.Equal(t, Bounded(25), l)
	})

	t.Run("строка unlimited дает безлимит", func(t *testing.T) {
		var l Limit
		require.NoError(t, json.Unmarshal([]byte(`"unlimited"`), &l))
		assert.Equal(t, UnlimitedLimit(), l)
	})

	t.Run("незнакомая строка возвращает ошибку", func(t *testing.T) {
		var l Limit
		err := json.Unmarshal([]byte(`"unlimitted"`), &l)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown limit value")
	})
}
