package groups

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/abigailajohn/VVMA/internal/apperr"
	"github.com/abigailajohn/VVMA/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.User{}, &models.Group{}, &models.GroupMember{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewEngine(conn)
}

func seedUsers(t *testing.T, e *Engine, usernames ...string) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, len(usernames))
	for _, username := range usernames {
		user := models.User{
			Username: username,
			Email:    username + "@x.com",
			Password: "x",
			Role:     models.RoleUser,
		}
		if errCreate := e.db.Create(&user).Error; errCreate != nil {
			t.Fatalf("seed user %s: %v", username, errCreate)
		}
		ids = append(ids, user.ID)
	}
	return ids
}

func expectKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %d, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected error kind %d, got %d (%v)", kind, got, err)
	}
}

func TestCreate_CreatorBecomesAdmin(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 2, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if group.ID == 0 {
		t.Fatalf("expected assigned group id")
	}
	if group.InviteCode == "" {
		t.Fatalf("expected invite code at creation")
	}

	detail, errGet := e.GetByID(ctx, group.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if len(detail.Members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(detail.Members))
	}
	if detail.Members[0].UserID != ids[0] || detail.Members[0].Role != models.GroupRoleAdmin {
		t.Fatalf("expected creator admin membership, got %+v", detail.Members[0])
	}
}

func TestCreate_Validation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice")

	_, err := e.Create(ctx, CreateParams{Description: "x", MaxMembers: 2, CreatorID: ids[0]})
	expectKind(t, err, apperr.KindValidation)

	_, err = e.Create(ctx, CreateParams{Name: "Team", Description: "x", MaxMembers: 1, CreatorID: ids[0]})
	expectKind(t, err, apperr.KindValidation)
}

func TestJoin_CapacityAndDuplicates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob", "carol")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 2, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if errJoin := e.Join(ctx, group.ID, ids[1]); errJoin != nil {
		t.Fatalf("join: %v", errJoin)
	}
	expectKind(t, e.Join(ctx, group.ID, ids[2]), apperr.KindConflict)
	expectKind(t, e.Join(ctx, group.ID, ids[1]), apperr.KindConflict)
	expectKind(t, e.Join(ctx, group.ID+99, ids[2]), apperr.KindNotFound)

	detail, errGet := e.GetByID(ctx, group.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if len(detail.Members) != 2 {
		t.Fatalf("expected capacity to hold at 2 members, got %d", len(detail.Members))
	}
}

func TestJoinByInviteCode(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 5, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	joinedID, errJoin := e.JoinByInviteCode(ctx, group.InviteCode, ids[1])
	if errJoin != nil {
		t.Fatalf("join by invite: %v", errJoin)
	}
	if joinedID != group.ID {
		t.Fatalf("expected joined group %d, got %d", group.ID, joinedID)
	}

	_, errJoin = e.JoinByInviteCode(ctx, "NOPE", ids[1])
	expectKind(t, errJoin, apperr.KindNotFound)
}

func TestRefreshInvite_InvalidatesOldCode(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 5, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	oldCode := group.InviteCode

	_, errRefresh := e.RefreshInvite(ctx, group.ID, ids[1])
	expectKind(t, errRefresh, apperr.KindForbidden)

	newCode, errRefresh := e.RefreshInvite(ctx, group.ID, ids[0])
	if errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	if newCode == oldCode {
		t.Fatalf("expected rotated invite code")
	}

	_, errJoin := e.JoinByInviteCode(ctx, oldCode, ids[1])
	expectKind(t, errJoin, apperr.KindNotFound)
	if _, errJoin = e.JoinByInviteCode(ctx, newCode, ids[1]); errJoin != nil {
		t.Fatalf("join with rotated code: %v", errJoin)
	}
}

func TestUpdate_AdminOnlyAllowList(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 5, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if errJoin := e.Join(ctx, group.ID, ids[1]); errJoin != nil {
		t.Fatalf("join: %v", errJoin)
	}

	name := "Team B"
	expectKind(t, e.Update(ctx, group.ID, ids[1], UpdateParams{Name: &name}), apperr.KindForbidden)

	small := 1
	expectKind(t, e.Update(ctx, group.ID, ids[0], UpdateParams{MaxMembers: &small}), apperr.KindValidation)

	bigger := 10
	if errUpdate := e.Update(ctx, group.ID, ids[0], UpdateParams{Name: &name, MaxMembers: &bigger}); errUpdate != nil {
		t.Fatalf("update: %v", errUpdate)
	}
	detail, errGet := e.GetByID(ctx, group.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if detail.Group.Name != "Team B" || detail.Group.MaxMembers != 10 {
		t.Fatalf("expected applied update, got %+v", detail.Group)
	}
	if detail.Group.Description != "x" {
		t.Fatalf("expected untouched description, got %q", detail.Group.Description)
	}
}

func TestDelete_CreatorOnlyAndCascades(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 5, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if errJoin := e.Join(ctx, group.ID, ids[1]); errJoin != nil {
		t.Fatalf("join: %v", errJoin)
	}
	// Promote bob so admin role alone is proven insufficient for deletion.
	if errPromote := e.Promote(ctx, group.ID, ids[1], ids[0]); errPromote != nil {
		t.Fatalf("promote: %v", errPromote)
	}

	expectKind(t, e.Delete(ctx, group.ID, ids[1]), apperr.KindForbidden)

	if errDelete := e.Delete(ctx, group.ID, ids[0]); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	_, errGet := e.GetByID(ctx, group.ID)
	expectKind(t, errGet, apperr.KindNotFound)

	var orphaned int64
	if errCount := e.db.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&orphaned).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if orphaned != 0 {
		t.Fatalf("expected membership rows cascaded, found %d", orphaned)
	}
}

func TestRemoveMember_CreatorProtected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 5, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if errJoin := e.Join(ctx, group.ID, ids[1]); errJoin != nil {
		t.Fatalf("join: %v", errJoin)
	}

	expectKind(t, e.RemoveMember(ctx, group.ID, ids[0]), apperr.KindForbidden)
	expectKind(t, e.RemoveMember(ctx, group.ID+99, ids[1]), apperr.KindNotFound)

	if errRemove := e.RemoveMember(ctx, group.ID, ids[1]); errRemove != nil {
		t.Fatalf("remove: %v", errRemove)
	}
	expectKind(t, e.RemoveMember(ctx, group.ID, ids[1]), apperr.KindNotFound)

	// A removed user may rejoin.
	if errJoin := e.Join(ctx, group.ID, ids[1]); errJoin != nil {
		t.Fatalf("rejoin: %v", errJoin)
	}
}

func TestPromote_AdminCap(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob", "carol", "dave")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 10, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, id := range ids[1:] {
		if errJoin := e.Join(ctx, group.ID, id); errJoin != nil {
			t.Fatalf("join %d: %v", id, errJoin)
		}
	}

	expectKind(t, e.Promote(ctx, group.ID, ids[2], ids[1]), apperr.KindForbidden)

	if errPromote := e.Promote(ctx, group.ID, ids[1], ids[0]); errPromote != nil {
		t.Fatalf("promote bob: %v", errPromote)
	}
	if errPromote := e.Promote(ctx, group.ID, ids[2], ids[0]); errPromote != nil {
		t.Fatalf("promote carol: %v", errPromote)
	}
	expectKind(t, e.Promote(ctx, group.ID, ids[3], ids[0]), apperr.KindConflict)

	expectKind(t, e.Promote(ctx, group.ID, ids[3]+99, ids[0]), apperr.KindConflict)

	var adminCount int64
	if errCount := e.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND role = ?", group.ID, models.GroupRoleAdmin).
		Count(&adminCount).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if adminCount != 3 {
		t.Fatalf("expected admin count to stay at 3, got %d", adminCount)
	}
}

func TestPromote_UnknownTarget(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob")

	group, err := e.Create(ctx, CreateParams{Name: "Team A", Description: "x", MaxMembers: 5, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// bob never joined.
	expectKind(t, e.Promote(ctx, group.ID, ids[1], ids[0]), apperr.KindNotFound)
}

func TestRemoveUserEverywhere(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice", "bob")

	created, err := e.Create(ctx, CreateParams{Name: "Alice's", Description: "x", MaxMembers: 5, CreatorID: ids[0]})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, errOther := e.Create(ctx, CreateParams{Name: "Bob's", Description: "x", MaxMembers: 5, CreatorID: ids[1]})
	if errOther != nil {
		t.Fatalf("create: %v", errOther)
	}
	if errJoin := e.Join(ctx, other.ID, ids[0]); errJoin != nil {
		t.Fatalf("join: %v", errJoin)
	}

	if errRemove := e.RemoveUserEverywhere(ctx, nil, ids[0]); errRemove != nil {
		t.Fatalf("remove everywhere: %v", errRemove)
	}

	_, errGet := e.GetByID(ctx, created.ID)
	expectKind(t, errGet, apperr.KindNotFound)

	detail, errDetail := e.GetByID(ctx, other.ID)
	if errDetail != nil {
		t.Fatalf("get: %v", errDetail)
	}
	if len(detail.Members) != 1 || detail.Members[0].UserID != ids[1] {
		t.Fatalf("expected only bob left in his group, got %+v", detail.Members)
	}
}

func TestListAll_Search(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ids := seedUsers(t, e, "alice")

	for _, name := range []string{"Go Study Group", "Book Club", "Golang Meetup"} {
		if _, err := e.Create(ctx, CreateParams{Name: name, Description: "x", MaxMembers: 5, CreatorID: ids[0]}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	all, errAll := e.ListAll(ctx, "")
	if errAll != nil {
		t.Fatalf("list: %v", errAll)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(all))
	}

	matched, errSearch := e.ListAll(ctx, "go")
	if errSearch != nil {
		t.Fatalf("search: %v", errSearch)
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches for %q, got %d", "go", len(matched))
	}
}

func TestInviteURLRoundTrip(t *testing.T) {
	url := InviteURL("http://localhost:3000", "ABCDEF0123456789")
	if url != "http://localhost:3000/join-group/ABCDEF0123456789" {
		t.Fatalf("unexpected invite url %q", url)
	}
	if code := CodeFromInviteURL(url); code != "ABCDEF0123456789" {
		t.Fatalf("unexpected extracted code %q", code)
	}
	if code := CodeFromInviteURL("http://localhost:3000/other/xyz"); code != "" {
		t.Fatalf("expected empty code for non-join url, got %q", code)
	}
}
