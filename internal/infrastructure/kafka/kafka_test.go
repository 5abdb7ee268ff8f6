package publisher

import (
	"encoding/json"
	"testing"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCurrencyCreated(t *testing.T) {
	msg, err := EncodeCurrencyCreated(domain.CurrencyCreatedEvent{
		CurrencySeriesID: 9,
		CurrencyCode:     "SEK",
		CorrelationID:    "abc",
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("SEK"), msg.Key)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, 9.0, body["currency_series_id"])
	assert.Equal(t, "SEK", body["currency_code"])
	assert.Equal(t, "abc", body["correlation_id"])
}

func TestKafkaConfig_Mechanism(t *testing.T) {
	tests := []struct {
		mechanism string
		wantNil   bool
		wantErr   bool
	}{
		{"", true, false},
		{"PLAIN", false, false},
		{"scram-sha-512", false, false},
		{"GSSAPI", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.mechanism, func(t *testing.T) {
			mech, err := KafkaConfig{Username: "u", Password: "p", Mechanism: tt.mechanism}.mechanism()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, mech == nil)
		})
	}
}

func TestNewDefaultKafkaPublisher_RejectsBadMechanism(t *testing.T) {
	_, err := NewDefaultKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Mechanism: "NOPE"})
	assert.Error(t, err)
}
