package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Synced(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.Add(-time.Minute)
	later := now.Add(time.Minute)

	tests := []struct {
		name     string
		modified time.Time
		synced   *time.Time
		want     bool
	}{
		{"never pushed", now, nil, false},
		{"pushed before last edit", now, &earlier, false},
		{"pushed at last edit", now, &now, true},
		{"pushed after last edit", now, &later, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Record{LastModifiedLocal: tc.modified, LastSyncedRemote: tc.synced}
			assert.Equal(t, tc.want, r.Synced())
		})
	}
}
