package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/goto/sitesearch/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUpserter struct {
	batches [][]map[string]interface{}
	err     error
}

func (u *recordingUpserter) Upsert(_ context.Context, _ string, docs []map[string]interface{}) error {
	if u.err != nil {
		return u.err
	}
	u.batches = append(u.batches, docs)
	return nil
}

func TestLoadDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("should upsert documents in batches", func(t *testing.T) {
		var input strings.Builder
		for i := 0; i < loadBatchSize+2; i++ {
			input.WriteString(`{"link":"/doc","title":"Doc"}` + "\n")
			if i == 3 {
				input.WriteString("\n   \n")
			}
		}

		u := &recordingUpserter{}
		n, err := loadDocuments(ctx, u, "govuk", strings.NewReader(input.String()))
		require.NoError(t, err)
		assert.Equal(t, loadBatchSize+2, n)
		require.Len(t, u.batches, 2)
		assert.Len(t, u.batches[0], loadBatchSize)
		assert.Len(t, u.batches[1], 2)
	})

	t.Run("should report the line of malformed JSON", func(t *testing.T) {
		u := &recordingUpserter{}
		_, err := loadDocuments(ctx, u, "govuk", strings.NewReader("{\"link\":\"/a\"}\n{broken\n"))
		assert.ErrorContains(t, err, "line 2")
		assert.Empty(t, u.batches)
	})

	t.Run("should return upsert failures", func(t *testing.T) {
		u := &recordingUpserter{err: errors.New("cluster_block_exception")}
		n, err := loadDocuments(ctx, u, "govuk", strings.NewReader(`{"link":"/a"}`))
		assert.ErrorContains(t, err, "cluster_block_exception")
		assert.Zero(t, n)
	})
}

func TestSearchCommand(t *testing.T) {
	cfg := &Config{Schema: SchemaConfig{
		ConfigPath:     testutils.SchemaConfigPath(),
		ContentIndices: "govuk, government",
	}}

	t.Run("should print the payload of a request", func(t *testing.T) {
		var out bytes.Buffer
		cmd := New(cfg)
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"search", "q=tax&count=5&start=10"})
		require.NoError(t, cmd.Execute())

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &payload), out.String())
		assert.EqualValues(t, 10, payload["from"])
		assert.EqualValues(t, 5, payload["size"])
		assert.Contains(t, payload, "query")
	})

	t.Run("should reject invalid parameters", func(t *testing.T) {
		var out bytes.Buffer
		err := previewPayload(&out, cfg, "count=abc")
		assert.Error(t, err)
		assert.Empty(t, out.String())
	})
}

func TestSchemaConfigIndices(t *testing.T) {
	assert.Equal(t, []string{"govuk", "government"}, SchemaConfig{ContentIndices: " govuk,,government "}.Indices())
	assert.Nil(t, SchemaConfig{}.Indices())
}
