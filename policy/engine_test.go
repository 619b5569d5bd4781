package policy

import (
	"testing"

	"taskflow/domain"
)

func TestAuthorizeAdminOverride(t *testing.T) {
	admin := domain.Principal{ID: "someone-else", Role: domain.RoleAdmin}
	resources := []Resource{
		ProjectResource{Project: domain.Project{OwnerID: "owner"}},
		TaskResource{Task: domain.Task{CreatedByID: "creator"}, Project: domain.Project{OwnerID: "owner"}},
		CommentResource{Comment: domain.Comment{AuthorID: "author"}},
	}
	for _, res := range resources {
		for _, action := range []Action{ActionUpdate, ActionDelete} {
			if !Authorize(admin, action, res) {
				t.Fatalf("admin denied %s on %T", action, res)
			}
		}
	}
}

func TestAuthorizeProjectOwnerOnly(t *testing.T) {
	res := ProjectResource{Project: domain.Project{OwnerID: "alice"}}

	owner := domain.Principal{ID: "alice", Role: domain.RoleMember}
	stranger := domain.Principal{ID: "bob", Role: domain.RoleManager}

	for _, action := range []Action{ActionUpdate, ActionDelete, ActionAddMember, ActionRemoveMember} {
		if !Authorize(owner, action, res) {
			t.Fatalf("owner denied %s", action)
		}
		if Authorize(stranger, action, res) {
			t.Fatalf("non-owner allowed %s", action)
		}
	}
}

func TestAuthorizeTaskCreatorOrProjectOwner(t *testing.T) {
	res := TaskResource{
		Task:    domain.Task{CreatedByID: "creator"},
		Project: domain.Project{OwnerID: "owner"},
	}

	cases := []struct {
		name    string
		p       domain.Principal
		allowed bool
	}{
		{"creator", domain.Principal{ID: "creator", Role: domain.RoleMember}, true},
		{"project owner", domain.Principal{ID: "owner", Role: domain.RoleMember}, true},
		{"unrelated member", domain.Principal{ID: "other", Role: domain.RoleMember}, false},
		{"unrelated manager", domain.Principal{ID: "other", Role: domain.RoleManager}, false},
	}
	for _, tc := range cases {
		if got := Authorize(tc.p, ActionUpdate, res); got != tc.allowed {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.allowed, got)
		}
	}
}

func TestAuthorizeCommentAuthorOnly(t *testing.T) {
	res := CommentResource{Comment: domain.Comment{AuthorID: "author"}}

	if !Authorize(domain.Principal{ID: "author", Role: domain.RoleMember}, ActionDelete, res) {
		t.Fatal("author denied delete")
	}
	if Authorize(domain.Principal{ID: "reader", Role: domain.RoleMember}, ActionDelete, res) {
		t.Fatal("non-author allowed delete")
	}
}

func TestAuthorizeEmptyPrincipalNeverMatchesEmptyOwner(t *testing.T) {
	res := ProjectResource{Project: domain.Project{}}
	if Authorize(domain.Principal{ID: "", Role: domain.RoleMember}, ActionUpdate, res) {
		t.Fatal("empty principal matched empty owner id")
	}
}
