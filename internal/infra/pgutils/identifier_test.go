package pgutils

import "testing"

func TestTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		schema, name, want string
	}{
		{schema: "tokens", name: "user_token_balances", want: `"tokens"."user_token_balances"`},
		{schema: "", name: "token_transactions", want: `"token_transactions"`},
		{schema: `we"ird`, name: "t", want: `"we""ird"."t"`},
	}

	for _, tt := range tests {
		got := Table(tt.schema, tt.name)
		if got != tt.want {
			t.Fatalf("Table(%q, %q): want %s, got %s", tt.schema, tt.name, tt.want, got)
		}
	}
}
