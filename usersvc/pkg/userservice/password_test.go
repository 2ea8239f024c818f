package userservice

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{name: "seed password", password: "admin123"},
		{name: "symbols", password: "P@ss w0rd!#$%"},
		{name: "unicode", password: "пароль-密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if hash == tt.password {
				t.Fatal("Hash() returned the plaintext")
			}
			if !hasher.Verify(tt.password, hash) {
				t.Error("Verify() = false for the hashed password")
			}
			if hasher.Verify(tt.password+"x", hash) {
				t.Error("Verify() = true for a different password")
			}
		})
	}
}

func TestPasswordHasher_IsHashed(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("admin123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name   string
		stored string
		want   bool
	}{
		{name: "bcrypt hash", stored: hash, want: true},
		{name: "plaintext", stored: "admin123", want: false},
		{name: "empty", stored: "", want: false},
		{name: "looks like a prefix", stored: "$2a$", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasher.IsHashed(tt.stored); got != tt.want {
				t.Errorf("IsHashed(%q) = %v, want %v", tt.stored, got, tt.want)
			}
		})
	}
}

func TestNewPasswordHasher_CostBounds(t *testing.T) {
	tests := []struct {
		cost int
		want int
	}{
		{cost: 0, want: DefaultBcryptCost},
		{cost: bcrypt.MaxCost + 1, want: DefaultBcryptCost},
		{cost: bcrypt.MinCost, want: bcrypt.MinCost},
		{cost: 10, want: 10},
	}

	for _, tt := range tests {
		if got := NewPasswordHasher(tt.cost).cost; got != tt.want {
			t.Errorf("NewPasswordHasher(%d).cost = %d, want %d", tt.cost, got, tt.want)
		}
	}
}
