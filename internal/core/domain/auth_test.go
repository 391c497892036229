package domain

import "testing"

func TestAuthContextIsAdmin(t *testing.T) {
	tests := []struct {
		name     string
		ctx      *AuthContext
		expected bool
	}{
		{"admin", &AuthContext{Subject: "ops", Role: RoleAdmin}, true},
		{"reader", &AuthContext{Subject: "site", Role: RoleReader}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ctx.IsAdmin() != tt.expected {
				t.Errorf("expected IsAdmin() = %v", tt.expected)
			}
		})
	}
}
