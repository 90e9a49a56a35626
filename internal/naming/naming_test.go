package naming_test

import (
	"testing"

	"github.com/fieldsync/ormgen/internal/naming"
)

func TestCamelToSnake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"ID", "id"},
		{"Name", "name"},
		{"CreatedAt", "created_at"},
		{"UserID", "user_id"},
		{"HTTPServer", "http_server"},
		{"userProfile", "user_profile"},
		{"A", "a"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := naming.CamelToSnake(tt.input)
			if got != tt.want {
				t.Errorf("CamelToSnake(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSnakeToCamel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"users", "Users"},
		{"user_profiles", "UserProfiles"},
		{"user_id", "UserID"},
		{"related_id", "RelatedID"},
		{"secondaries", "Secondaries"},
		{"api_url", "APIURL"},
		{"__x", "X"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := naming.SnakeToCamel(tt.input)
			if got != tt.want {
				t.Errorf("SnakeToCamel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"RelatedID", "UserProfiles", "Name", "CreatedAt"} {
		if got := naming.SnakeToCamel(naming.CamelToSnake(name)); got != name {
			t.Errorf("SnakeToCamel(CamelToSnake(%q)) = %q", name, got)
		}
	}
}
