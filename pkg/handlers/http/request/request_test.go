package request

import (
	"testing"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/stretchr/testify/assert"
)

func TestRecordSignalRequest_Validate(t *testing.T) {
	subject := int64(3)
	tests := []struct {
		name    string
		req     RecordSignalRequest
		wantErr bool
	}{
		{name: "subject only", req: RecordSignalRequest{SubjectID: &subject, Category: "xss"}},
		{name: "origin only", req: RecordSignalRequest{OriginAddress: "10.0.0.1", Category: "brute_force"}},
		{name: "no category", req: RecordSignalRequest{OriginAddress: "10.0.0.1"}, wantErr: true},
		{name: "no entity", req: RecordSignalRequest{Category: "xss"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecordSignalRequest_ToSignal(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	req := RecordSignalRequest{OriginAddress: "10.0.0.1", Category: "sql_injection", OccurredAt: &at}

	s := req.ToSignal()

	assert.Equal(t, signal.SqlInjection, s.Category)
	assert.Equal(t, time.UTC, s.OccurredAt.Location())
	assert.True(t, s.OccurredAt.Equal(at))
}

func TestCheckAdmissionRequest_Validate(t *testing.T) {
	assert.NoError(t, (&CheckAdmissionRequest{Identifier: "k", Class: "login"}).Validate())
	assert.NoError(t, (&CheckAdmissionRequest{Identifier: "k", Limit: 5, WindowSeconds: 60}).Validate())
	assert.Error(t, (&CheckAdmissionRequest{Identifier: "k"}).Validate())
	assert.Error(t, (&CheckAdmissionRequest{Class: "login"}).Validate())
}
