package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/qosd/internal/assoc"
	"evalgo.org/qosd/models"
)

func TestNew(t *testing.T) {
	v := New()
	assert.NotNil(t, v)
	assert.NotNil(t, v.structValidator)
}

func hasField(result *ValidationResult, field string) bool {
	for _, e := range result.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateRecord_QueueEntry(t *testing.T) {
	v := New()

	tests := []struct {
		name  string
		entry models.QueueEntry
		valid bool
		field string
	}{
		{
			name:  "strict without weight",
			entry: models.QueueEntry{Algorithm: models.AlgorithmStrict},
			valid: true,
		},
		{
			name:  "wrr with weight",
			entry: models.QueueEntry{Algorithm: models.AlgorithmWRR, Weight: models.IntPtr(4)},
			valid: true,
		},
		{
			name:  "wrr without weight",
			entry: models.QueueEntry{Algorithm: models.AlgorithmWRR},
			field: "weight",
		},
		{
			name:  "strict with weight",
			entry: models.QueueEntry{Algorithm: models.AlgorithmStrict, Weight: models.IntPtr(1)},
			field: "weight",
		},
		{
			name:  "zero weight",
			entry: models.QueueEntry{Algorithm: models.AlgorithmWRR, Weight: models.IntPtr(0)},
			field: "weight",
		},
		{
			name:  "unknown algorithm",
			entry: models.QueueEntry{Algorithm: "dwrr"},
			field: "algorithm",
		},
		{
			name:  "missing algorithm",
			entry: models.QueueEntry{},
			field: "algorithm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateRecord(&tt.entry)
			assert.Equal(t, tt.valid, result.Valid, result.String())
			if !tt.valid {
				assert.True(t, hasField(result, tt.field), "expected error on %s, got %s", tt.field, result.String())
			}
		})
	}
}

func TestValidateRecord_PriorityEntry(t *testing.T) {
	v := New()

	assert.True(t, v.ValidateRecord(&models.PriorityEntry{LocalPriorities: []int{0, 7}}).Valid)
	assert.True(t, v.ValidateRecord(&models.PriorityEntry{}).Valid)

	dup := v.ValidateRecord(&models.PriorityEntry{LocalPriorities: []int{3, 3}})
	assert.False(t, dup.Valid)
	assert.True(t, hasField(dup, "local_priorities"))

	out := v.ValidateRecord(&models.PriorityEntry{LocalPriorities: []int{8}})
	assert.False(t, out.Valid)
	assert.True(t, hasField(out, "local_priorities[0]"), out.String())
}

func TestValidateRecord_Profile(t *testing.T) {
	v := New()

	ok := models.Profile{
		Name:    "default",
		Entries: assoc.Association[int, models.Ref]{{Key: 0, Value: "queue:a"}, {Key: 7, Value: "queue:b"}},
	}
	assert.True(t, v.ValidateRecord(&ok).Valid)

	noName := v.ValidateRecord(&models.Profile{})
	assert.False(t, noName.Valid)
	assert.True(t, hasField(noName, "name"))

	badQueue := models.Profile{
		Name:    "default",
		Entries: assoc.Association[int, models.Ref]{{Key: 8, Value: "queue:a"}},
	}
	assert.False(t, v.ValidateRecord(&badQueue).Valid)

	dupQueue := models.Profile{
		Name:    "default",
		Entries: assoc.Association[int, models.Ref]{{Key: 1, Value: "queue:a"}, {Key: 1, Value: "queue:b"}},
	}
	result := v.ValidateRecord(&dupQueue)
	assert.False(t, result.Valid)
	assert.Contains(t, result.String(), "more than once")
}

func TestValidateRecord_MapEntries(t *testing.T) {
	v := New()

	assert.True(t, v.ValidateRecord(&models.CosMapEntry{CodePoint: 7, LocalPriority: 7, Color: models.ColorGreen}).Valid)
	assert.False(t, v.ValidateRecord(&models.CosMapEntry{CodePoint: 8, Color: models.ColorGreen}).Valid)
	assert.False(t, v.ValidateRecord(&models.CosMapEntry{Color: "blue"}).Valid)

	assert.True(t, v.ValidateRecord(&models.DscpMapEntry{CodePoint: 63, LocalPriority: 7, PriorityCodePoint: models.IntPtr(7), Color: models.ColorRed}).Valid)
	assert.False(t, v.ValidateRecord(&models.DscpMapEntry{CodePoint: 64, Color: models.ColorGreen}).Valid)

	badPCP := v.ValidateRecord(&models.DscpMapEntry{Color: models.ColorGreen, PriorityCodePoint: models.IntPtr(9)})
	assert.False(t, badPCP.Valid)
	assert.True(t, hasField(badPCP, "priority_code_point"))
}

func TestValidateDocument(t *testing.T) {
	v := New()

	valid := []byte(`{"@id":"queue:1","@type":"Queue","algorithm":"wrr","weight":2}`)
	result, err := v.ValidateDocument(models.KindQueue, valid)
	require.NoError(t, err)
	assert.True(t, result.Valid, result.String())

	wrongType := []byte(`{"@id":"queue:1","@type":"CosMapEntry","algorithm":"strict"}`)
	result, err = v.ValidateDocument(models.KindQueue, wrongType)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, hasField(result, "@type"))

	missingID := []byte(`{"@type":"Queue","algorithm":"strict"}`)
	result, err = v.ValidateDocument(models.KindQueue, missingID)
	require.NoError(t, err)
	assert.True(t, hasField(result, "@id"))

	badJSON := []byte(`{"@id":`)
	result, err = v.ValidateDocument(models.KindQueue, badJSON)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, hasField(result, "document"))

	_, err = v.ValidateDocument(models.Kind("Bogus"), valid)
	assert.Error(t, err)
}

func TestValidationResult_String(t *testing.T) {
	assert.Equal(t, "valid", (&ValidationResult{Valid: true}).String())

	r := &ValidationResult{Errors: []ValidationError{{Field: "weight", Message: "must be greater than 0"}}}
	assert.Equal(t, "weight: must be greater than 0", r.String())
}
