package app

import (
	"testing"

	"github.com/dkeye/Roster/internal/domain"
)

func TestOwnerPolicy(t *testing.T) {
	tests := []struct {
		name   string
		owner  domain.UserID
		actor  domain.UserID
		target domain.UserID
		want   bool
	}{
		{name: "owner kicks member", owner: "o", actor: "o", target: "m", want: true},
		{name: "member kicks member", owner: "o", actor: "m", target: "n", want: false},
		{name: "member kicks owner", owner: "o", actor: "m", target: "o", want: false},
		{name: "self operation", owner: "o", actor: "o", target: "o", want: false},
		{name: "ownerless room", actor: "m", target: "n", want: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			room := domain.Room{ID: "r", Owner: testCase.owner}
			if got := (OwnerPolicy{}).CanOperate(room, testCase.actor, testCase.target, domain.OpKick); got != testCase.want {
				t.Fatalf("CanOperate = %v, want %v", got, testCase.want)
			}
		})
	}
}
