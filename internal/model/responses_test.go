package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponses_MarshalFlat(t *testing.T) {
	r := Responses{
		Values:      map[string]string{"Name": "John", "Age": "30"},
		IsSubmitted: true,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"Age":"30","Name":"John","isSubmitted":true}`, string(data))
}

func TestResponses_MarshalDropsReservedValue(t *testing.T) {
	r := Responses{Values: map[string]string{"isSubmitted": "yes", "Name": "<John>"}}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"Name":"\u003cJohn\u003e"}`, string(data))
}

func TestResponses_MarshalOmitsFalseFlag(t *testing.T) {
	data, err := json.Marshal(Responses{Values: map[string]string{"Name": "John"}})
	require.NoError(t, err)
	assert.Equal(t, `{"Name":"John"}`, string(data))

	data, err = json.Marshal(Responses{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestResponses_UnmarshalSeparatesReservedKey(t *testing.T) {
	var r Responses
	err := json.Unmarshal([]byte(`{"Name":"John","Age":30,"Agree":true,"Skip":null,"isSubmitted":true}`), &r)
	require.NoError(t, err)

	assert.True(t, r.IsSubmitted)
	assert.Equal(t, map[string]string{"Name": "John", "Age": "30", "Agree": "true"}, r.Values)
	assert.NotContains(t, r.Values, ReservedSubmittedKey)
}

func TestResponses_UnmarshalRejectsBadFlag(t *testing.T) {
	var r Responses
	err := json.Unmarshal([]byte(`{"isSubmitted":"yes"}`), &r)
	assert.Error(t, err)
}

func TestResponses_UnmarshalNormalizesKeys(t *testing.T) {
	var r Responses
	// Decomposed e followed by a combining acute accent.
	err := json.Unmarshal([]byte("{\"Cafe\u0301\":\"yes\"}"), &r)
	require.NoError(t, err)

	assert.Equal(t, "yes", r.Values["Caf\u00e9"])
}

func TestResponseKey_NFC(t *testing.T) {
	assert.Equal(t, ResponseKey("Caf\u00e9"), ResponseKey("Cafe\u0301"))
	assert.Equal(t, "Name", ResponseKey("Name"))
}

func TestFormResponsesSubmitted(t *testing.T) {
	assert.False(t, Form{}.ResponsesSubmitted())
	assert.False(t, Form{Responses: &Responses{}}.ResponsesSubmitted())
	assert.True(t, Form{Responses: &Responses{IsSubmitted: true}}.ResponsesSubmitted())
}
