package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "runs", (&Run{}).TableName())
	assert.Equal(t, "records", (&StoredRecord{}).TableName())
	assert.Equal(t, "run_performances", (&RunPerformance{}).TableName())
}

func TestDatabaseModels_ContainsAllTables(t *testing.T) {
	assert.Len(t, DatabaseModels, 3)
	assert.Contains(t, DatabaseModels, &Run{})
	assert.Contains(t, DatabaseModels, &StoredRecord{})
	assert.Contains(t, DatabaseModels, &RunPerformance{})
}
