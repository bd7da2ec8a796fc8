package mq

import (
	"encoding/json"
	"testing"

	"lifeassistant/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTakesUserFromChannel(t *testing.T) {
	ev := models.ChangeEvent{UserID: "spoofed", Entity: models.EntitySlot, Op: models.OpDelete, ID: "s1", Revision: 7}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	got, err := Decode(Channel("u1"), string(payload))
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, int64(7), got.Revision)
	assert.Equal(t, "changes:u1", Channel("u1"))

	_, err = Decode(Channel("u1"), "{")
	assert.Error(t, err)
}
