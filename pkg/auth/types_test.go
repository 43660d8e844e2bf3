package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_JSONOmitsPasswordHash(t *testing.T) {
	acct := &Account{ID: 1, Username: "alice", PasswordHash: "$2a$04$secret", Role: RoleStudent, Status: StatusActive}

	b, err := json.Marshal(acct)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.NotContains(t, string(b), "password")
}

func TestAccount_Active(t *testing.T) {
	assert.True(t, (&Account{Status: StatusActive}).Active())
	assert.False(t, (&Account{Status: StatusInactive}).Active())
	assert.False(t, (&Account{}).Active())
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusInactive.Valid())
	assert.False(t, Status("suspended").Valid())
}

func TestIdentity_HasRole(t *testing.T) {
	id := &Identity{UserID: 2, Role: RoleTeacher}

	assert.True(t, id.HasRole(RoleTeacher))
	assert.True(t, id.HasRole("staff"))
	assert.True(t, id.HasRole(RoleAdmin, RoleTeacher))
	assert.False(t, id.HasRole(RoleStudent))
	assert.False(t, id.HasRole())

	var nilID *Identity
	assert.False(t, nilID.HasRole(RoleTeacher))
}

func TestLoginResult_UserView(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	res := &LoginResult{
		Account: &Account{ID: 5, Username: "alice", Role: RoleStudent, Status: StatusActive, LastLoginAt: &at},
		Profile: map[string]any{"roll_no": "CS-042", "semester": 3, "username": "spoofed"},
	}

	view := res.UserView()
	assert.Equal(t, int64(5), view["id"])
	assert.Equal(t, "alice", view["username"], "account fields win")
	assert.Equal(t, RoleStudent, view["role"])
	assert.Equal(t, "CS-042", view["roll_no"])
	assert.Equal(t, 3, view["semester"])
	assert.NotContains(t, view, "password_hash")
	assert.Equal(t, &at, view["last_login_at"])
}

func TestLoginResult_UserViewWithoutProfile(t *testing.T) {
	view := (&LoginResult{Account: &Account{ID: 1, Username: "root", Role: RoleAdmin}}).UserView()
	assert.Len(t, view, 4)
}
