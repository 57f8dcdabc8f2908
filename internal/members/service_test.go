package members

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
)

type stubMemberRepo struct {
	members []models.Member
}

func (s *stubMemberRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubMemberRepo) FindByID(ctx context.Context, memberID uuid.UUID) (*models.Member, error) {
	for i := range s.members {
		if s.members[i].ID == memberID {
			return &s.members[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubMemberRepo) FindByMobile(ctx context.Context, mobile string) (*models.Member, error) {
	for i := range s.members {
		if s.members[i].Mobile == mobile {
			return &s.members[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubMemberRepo) FindByName(ctx context.Context, fullName string) ([]models.Member, error) {
	var out []models.Member
	for _, m := range s.members {
		if strings.EqualFold(m.FullName, fullName) {
			out = append(out, m)
		}
	}
	return out, nil
}

func newMemberService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestResolvePrefersMobile(t *testing.T) {
	alice := models.Member{ID: uuid.New(), FullName: "Alice Wanjiku", Mobile: "0712000001"}
	bob := models.Member{ID: uuid.New(), FullName: "Alice Wanjiku", Mobile: "0712000002"}
	svc := newMemberService(t, &stubMemberRepo{members: []models.Member{alice, bob}})

	member, err := svc.Resolve(context.Background(), "0712000002", "Alice Wanjiku")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if member.ID != bob.ID {
		t.Fatal("mobile must win over name")
	}
}

func TestResolveFallsBackToExactName(t *testing.T) {
	alice := models.Member{ID: uuid.New(), FullName: "Alice Wanjiku", Mobile: "0712000001"}
	svc := newMemberService(t, &stubMemberRepo{members: []models.Member{alice}})

	member, err := svc.Resolve(context.Background(), "0799999999", "alice wanjiku")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if member.ID != alice.ID {
		t.Fatal("unknown mobile must fall back to the name match")
	}
}

func TestResolveAmbiguousNameFails(t *testing.T) {
	first := models.Member{ID: uuid.New(), FullName: "John Otieno", Mobile: "0712000001"}
	second := models.Member{ID: uuid.New(), FullName: "John Otieno", Mobile: "0712000002"}
	svc := newMemberService(t, &stubMemberRepo{members: []models.Member{first, second}})

	_, err := svc.Resolve(context.Background(), "", "John Otieno")
	if !pkgerrors.HasCode(err, pkgerrors.CodeMemberNotResolved) {
		t.Fatalf("expected MemberNotResolved got %v", err)
	}
}

func TestResolveNoMatchFails(t *testing.T) {
	svc := newMemberService(t, &stubMemberRepo{})

	_, err := svc.Resolve(context.Background(), "0712000001", "Nobody Known")
	if !pkgerrors.HasCode(err, pkgerrors.CodeMemberNotResolved) {
		t.Fatalf("expected MemberNotResolved got %v", err)
	}

	_, err = svc.Resolve(context.Background(), "0712000001", "")
	if !pkgerrors.HasCode(err, pkgerrors.CodeMemberNotResolved) {
		t.Fatalf("expected MemberNotResolved got %v", err)
	}
}

func TestGetUnknownMember(t *testing.T) {
	svc := newMemberService(t, &stubMemberRepo{})

	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NotFound got %v", err)
	}
}
