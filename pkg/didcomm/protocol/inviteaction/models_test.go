/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inviteaction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
)

const goalCode = "automotive.inspect.tire"

func TestInvite_SetGoalCode(t *testing.T) {
	invite := NewInvite("testid")
	withGoal := invite.SetGoalCode(goalCode)

	require.Empty(t, invite.GoalCode)
	require.Equal(t, goalCode, withGoal.GoalCode)

	raw, err := json.Marshal(withGoal)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"@id":"testid","@type":"https://didcomm.org/invite-action/0.9/invite","goal_code":"automotive.inspect.tire"}`,
		string(raw))
}

func TestInvite_RequestAck(t *testing.T) {
	invite := NewInvite("testid").SetGoalCode(goalCode)

	acked := invite.RequestAck()
	require.Nil(t, invite.PleaseAck)
	require.Equal(t, []string{decorator.PleaseAckOnReceipt}, acked.PleaseAck.On)

	outcome := invite.RequestAck(decorator.PleaseAckOnOutcome)
	require.Equal(t, []string{decorator.PleaseAckOnOutcome}, outcome.PleaseAck.On)

	raw, err := json.Marshal(acked)
	require.NoError(t, err)

	var decoded Invite
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, acked, decoded)
}
