package votes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsVoterGone(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"voter foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "votes_voter_fk"}, true},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503", ConstraintName: "votes_voter_fk"}), true},
		{"photo foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "votes_photo_id_fkey"}, false},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "votes_voter_fk"}, false},
		{"other", errors.New("conn reset"), false},
	}
	for _, tc := range cases {
		if got := isVoterGone(tc.err); got != tc.want {
			t.Errorf("%s: isVoterGone = %v, want %v", tc.name, got, tc.want)
		}
	}
}
