package authz

import (
	"testing"

	"github.com/canvasboard/backend/internal/models"
)

func TestPermissionTable(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	tests := []struct {
		role    models.BoardRole
		allowed map[Action]bool
	}{
		{models.RoleOwner, map[Action]bool{ActionView: true, ActionEdit: true, ActionManage: true, ActionDelete: true}},
		{models.RoleEditor, map[Action]bool{ActionView: true, ActionEdit: true, ActionManage: false, ActionDelete: false}},
		{models.RoleViewer, map[Action]bool{ActionView: true, ActionEdit: false, ActionManage: false, ActionDelete: false}},
		{models.BoardRole(""), map[Action]bool{ActionView: false, ActionEdit: false, ActionManage: false, ActionDelete: false}},
		{models.BoardRole("admin"), map[Action]bool{ActionView: false, ActionEdit: false, ActionManage: false, ActionDelete: false}},
	}

	for _, tt := range tests {
		for action, want := range tt.allowed {
			got, err := e.Allowed(tt.role, action)
			if err != nil {
				t.Fatalf("Allowed(%q, %q) error = %v", tt.role, action, err)
			}
			if got != want {
				t.Errorf("Allowed(%q, %q) = %v, want %v", tt.role, action, got, want)
			}
		}
	}
}

func TestUnknownActionDenied(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	if ok, _ := e.Allowed(models.RoleOwner, Action("export")); ok {
		t.Fatal("expected unknown action to be denied")
	}
}
