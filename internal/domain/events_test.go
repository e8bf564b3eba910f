package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestTemplateEvent_Validate(t *testing.T) {
	valid := TemplateEvent{
		Op:          OpUpsert,
		TenantID:    "tenant-1",
		RID:         "rid-1",
		FingerIndex: RightIndex,
		Vector:      []float32{0.1, 0.2},
		Template:    []byte{0xAA},
		Quality:     intPtr(70),
	}

	tests := []struct {
		name    string
		mutate  func(e *TemplateEvent)
		wantErr bool
	}{
		{name: "valid upsert", mutate: func(e *TemplateEvent) {}},
		{name: "remove without payload", mutate: func(e *TemplateEvent) {
			e.Op = OpRemove
			e.Vector = nil
			e.Template = nil
		}},
		{name: "upsert without vector", mutate: func(e *TemplateEvent) { e.Vector = nil }, wantErr: true},
		{name: "upsert without template", mutate: func(e *TemplateEvent) { e.Template = nil }, wantErr: true},
		{name: "missing rid", mutate: func(e *TemplateEvent) { e.RID = "" }, wantErr: true},
		{name: "missing tenant", mutate: func(e *TemplateEvent) { e.TenantID = " " }, wantErr: true},
		{name: "finger out of range", mutate: func(e *TemplateEvent) { e.FingerIndex = 10 }, wantErr: true},
		{name: "quality out of range", mutate: func(e *TemplateEvent) { e.Quality = intPtr(101) }, wantErr: true},
		{name: "unknown op", mutate: func(e *TemplateEvent) { e.Op = "PATCH" }, wantErr: true},
		{name: "unknown status", mutate: func(e *TemplateEvent) { e.Status = "PENDING" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidEvent)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTemplateEvent_FingerprintDefaults(t *testing.T) {
	e := TemplateEvent{Op: OpUpsert, TenantID: "t", RID: "r", Vector: []float32{1}, Template: []byte{1}}
	fp := e.Fingerprint()
	assert.Equal(t, 0, fp.Quality)
	assert.Equal(t, FingerprintActive, fp.Status)
	assert.False(t, fp.Eligible(40))
	assert.True(t, fp.Eligible(0))

	fp.Status = FingerprintArchived
	assert.False(t, fp.Eligible(0))
}

func TestFingerIndex_String(t *testing.T) {
	assert.Equal(t, "RIGHT_THUMB", RightThumb.String())
	assert.Equal(t, "LEFT_PINKY", LeftPinky.String())
	assert.Equal(t, "FINGER(12)", FingerIndex(12).String())
}
