package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/identity"
	"github.com/setil-app/backend/internal/models"
	"github.com/setil-app/backend/internal/money"
)

var (
	alice = identity.User{ID: "alice", DisplayName: "Alice"}
	bob   = identity.User{ID: "bob", DisplayName: "Bob"}
	carol = identity.User{ID: "carol", DisplayName: "Carol"}
)

// newTestStores returns one store per user, all sharing the same
// in-memory document store.
func newTestStores(t *testing.T, users ...identity.User) (docstore.Store, map[string]*Store) {
	t.Helper()

	docs := docstore.NewMemory()
	stores := make(map[string]*Store, len(users))
	for _, user := range users {
		stores[user.ID] = New(docs, identity.Static{User: user})
	}
	return docs, stores
}

// checkZeroSum fails the test when the group's balances do not sum to
// zero.
func checkZeroSum(t *testing.T, s *Store, groupID string) {
	t.Helper()

	balances, err := s.Balances(context.Background(), groupID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	var total int64
	for _, bal := range balances {
		total += bal
	}
	if total != 0 {
		t.Fatalf("balances sum to %d, want 0: %v", total, balances)
	}
}

// addMember joins a user into the group via a fresh invite.
func addMember(t *testing.T, owner, joiner *Store, groupID string) {
	t.Helper()
	ctx := context.Background()

	code, err := owner.Invite(ctx, groupID, time.Hour)
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := joiner.JoinGroup(ctx, groupID, code); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice)
	s := stores["alice"]

	groupID, err := s.CreateGroup(ctx, "Ski Trip", "Chamonix 2026", money.GBP)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if group.Name != "Ski Trip" || group.OwnerID != "alice" || group.Currency != money.GBP {
		t.Errorf("unexpected group: %+v", group)
	}

	members, err := s.Members(ctx, groupID)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	me, ok := members["alice"]
	if !ok {
		t.Fatal("creator is not a member")
	}
	if me.Status != models.StatusActive || me.Balance != 0 {
		t.Errorf("unexpected member: %+v", me)
	}

	summaries, err := s.UserGroups(ctx)
	if err != nil {
		t.Fatalf("UserGroups failed: %v", err)
	}
	if _, ok := summaries[groupID]; !ok {
		t.Errorf("group missing from creator's group list")
	}
}

func TestCreateGroupRejectsUnknownCurrency(t *testing.T) {
	_, stores := newTestStores(t, alice)
	if _, err := stores["alice"].CreateGroup(context.Background(), "Trip", "", "doubloons"); err == nil {
		t.Fatal("expected error for unknown currency")
	}
}

func TestCreateGroupRequiresIdentity(t *testing.T) {
	docs := docstore.NewMemory()
	s := New(docs, identity.Static{})

	_, err := s.CreateGroup(context.Background(), "Trip", "", money.GBP)
	if !errors.Is(err, identity.ErrNotSignedIn) {
		t.Fatalf("error = %v, want ErrNotSignedIn", err)
	}
}

func TestTransactionBalances(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice, bob, carol)
	s := stores["alice"]

	groupID, err := s.CreateGroup(ctx, "Flat", "", money.GBP)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	addMember(t, s, stores["bob"], groupID)
	addMember(t, s, stores["carol"], groupID)

	// Alice pays 900 split across all three.
	txn := models.Transaction{
		Title: "Groceries",
		From:  "alice",
		To:    map[string]int64{"alice": 300, "bob": 300, "carol": 300},
	}
	txnID, err := s.CreateTransaction(ctx, groupID, txn, nil)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if txnID == "" {
		t.Fatal("expected transaction id")
	}

	balances, err := s.Balances(ctx, groupID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	want := map[string]int64{"alice": 600, "bob": -300, "carol": -300}
	for userID, bal := range want {
		if balances[userID] != bal {
			t.Errorf("balance[%s] = %d, want %d", userID, balances[userID], bal)
		}
	}
	checkZeroSum(t, s, groupID)

	t.Run("stored transaction defaults category and date", func(t *testing.T) {
		txns, err := s.Transactions(ctx, groupID)
		if err != nil {
			t.Fatalf("Transactions failed: %v", err)
		}
		stored, ok := txns[txnID]
		if !ok {
			t.Fatal("transaction not stored")
		}
		if stored.Category != models.CategoryExpense {
			t.Errorf("category = %q, want expense", stored.Category)
		}
		if stored.Date.IsZero() {
			t.Error("date not defaulted")
		}
	})

	t.Run("settle up nets the group", func(t *testing.T) {
		settlements, err := s.SettleUp(ctx, groupID)
		if err != nil {
			t.Fatalf("SettleUp failed: %v", err)
		}
		if len(settlements) != 2 {
			t.Fatalf("got %d settlements, want 2: %v", len(settlements), settlements)
		}
		for _, st := range settlements {
			if st.To != "alice" || st.Amount != 300 {
				t.Errorf("unexpected settlement: %+v", st)
			}
		}
	})
}

func TestUpdateTransactionReversesOldEffect(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice, bob)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)
	addMember(t, s, stores["bob"], groupID)

	txnID, err := s.CreateTransaction(ctx, groupID, models.Transaction{
		Title: "Dinner",
		From:  "alice",
		To:    map[string]int64{"bob": 500},
	}, nil)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	// Correct the amount: Bob only owes 200.
	err = s.UpdateTransaction(ctx, groupID, txnID, models.Transaction{
		Title: "Dinner",
		From:  "alice",
		To:    map[string]int64{"bob": 200},
	}, nil)
	if err != nil {
		t.Fatalf("UpdateTransaction failed: %v", err)
	}

	balances, _ := s.Balances(ctx, groupID)
	if balances["alice"] != 200 || balances["bob"] != -200 {
		t.Errorf("balances = %v, want alice 200 bob -200", balances)
	}
	checkZeroSum(t, s, groupID)
}

func TestDeleteTransactionRestoresBalances(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice, bob)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)
	addMember(t, s, stores["bob"], groupID)

	txnID, err := s.CreateTransaction(ctx, groupID, models.Transaction{
		Title: "Dinner",
		From:  "alice",
		To:    map[string]int64{"bob": 750},
	}, nil)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	if err := s.DeleteTransaction(ctx, groupID, txnID, nil); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}

	balances, _ := s.Balances(ctx, groupID)
	if balances["alice"] != 0 || balances["bob"] != 0 {
		t.Errorf("balances = %v, want all zero", balances)
	}
	checkZeroSum(t, s, groupID)

	txns, _ := s.Transactions(ctx, groupID)
	if _, ok := txns[txnID]; ok {
		t.Error("transaction still listed after delete")
	}
}

func TestDeleteMissingTransaction(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)

	err := s.DeleteTransaction(ctx, groupID, "nonexistent", nil)
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateTransactionRejectsUnknownCategory(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)

	_, err := s.CreateTransaction(ctx, groupID, models.Transaction{
		Title:    "Oops",
		Category: "gambling",
		From:     "alice",
		To:       map[string]int64{"alice": 100},
	}, nil)
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestMemberLifecycle(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice, bob)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)
	addMember(t, s, stores["bob"], groupID)

	// Bob owes Alice, then gets removed.
	if _, err := s.CreateTransaction(ctx, groupID, models.Transaction{
		Title: "Rent",
		From:  "alice",
		To:    map[string]int64{"bob": 400},
	}, nil); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	if err := s.RemoveUser(ctx, groupID, "bob"); err != nil {
		t.Fatalf("RemoveUser failed: %v", err)
	}

	members, _ := s.Members(ctx, groupID)
	if members["bob"].Status != models.StatusLeft {
		t.Fatalf("bob status = %q, want left", members["bob"].Status)
	}

	// Bob pays Alice back; his record should flip to history.
	if _, err := s.CreateTransaction(ctx, groupID, models.Transaction{
		Title:    "Settling up",
		Category: models.CategoryPayment,
		From:     "bob",
		To:       map[string]int64{"alice": 400},
	}, []string{"bob"}); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	members, _ = s.Members(ctx, groupID)
	if members["bob"].Status != models.StatusHistory {
		t.Errorf("bob status = %q, want history", members["bob"].Status)
	}
	if members["bob"].Balance != 0 {
		t.Errorf("bob balance = %d, want 0", members["bob"].Balance)
	}
	checkZeroSum(t, s, groupID)
}

func TestRemoveSettledUserGoesStraightToHistory(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice, bob)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)
	addMember(t, s, stores["bob"], groupID)

	if err := s.RemoveUser(ctx, groupID, "bob"); err != nil {
		t.Fatalf("RemoveUser failed: %v", err)
	}

	members, _ := s.Members(ctx, groupID)
	if members["bob"].Status != models.StatusHistory {
		t.Errorf("bob status = %q, want history", members["bob"].Status)
	}
}

func TestRejoinReactivatesMember(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice, bob)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)
	addMember(t, s, stores["bob"], groupID)

	if _, err := s.CreateTransaction(ctx, groupID, models.Transaction{
		Title: "Rent",
		From:  "alice",
		To:    map[string]int64{"bob": 400},
	}, nil); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if err := s.RemoveUser(ctx, groupID, "bob"); err != nil {
		t.Fatalf("RemoveUser failed: %v", err)
	}

	addMember(t, s, stores["bob"], groupID)

	members, _ := s.Members(ctx, groupID)
	if members["bob"].Status != models.StatusActive {
		t.Fatalf("bob status = %q, want active", members["bob"].Status)
	}
	// Balance history survives the round trip.
	if members["bob"].Balance != -400 {
		t.Errorf("bob balance = %d, want -400", members["bob"].Balance)
	}
}

func TestLeaveGroupTransfersOwnership(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice, bob)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)
	addMember(t, s, stores["bob"], groupID)

	if err := s.LeaveGroup(ctx, groupID); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if group.OwnerID != "bob" {
		t.Errorf("owner = %q, want bob", group.OwnerID)
	}

	members, _ := s.Members(ctx, groupID)
	if members["alice"].Status == models.StatusActive {
		t.Errorf("alice still active after leaving")
	}
}

func TestLeaveGroupDeletesWhenLastActive(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Solo", "", money.GBP)

	if err := s.LeaveGroup(ctx, groupID); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	if _, err := s.GetGroup(ctx, groupID); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound after group deletion", err)
	}
}

func TestPromoteUser(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice, bob)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)
	addMember(t, s, stores["bob"], groupID)

	if err := s.PromoteUser(ctx, groupID, "bob"); err != nil {
		t.Fatalf("PromoteUser failed: %v", err)
	}
	group, _ := s.GetGroup(ctx, groupID)
	if group.OwnerID != "bob" {
		t.Errorf("owner = %q, want bob", group.OwnerID)
	}

	t.Run("cannot promote departed member", func(t *testing.T) {
		if err := s.RemoveUser(ctx, groupID, "bob"); err != nil {
			t.Fatalf("RemoveUser failed: %v", err)
		}
		if err := s.PromoteUser(ctx, groupID, "bob"); err == nil {
			t.Error("expected error promoting non-active member")
		}
	})
}

func TestInvites(t *testing.T) {
	ctx := context.Background()
	docs, stores := newTestStores(t, alice, bob)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)

	t.Run("join with bad code", func(t *testing.T) {
		err := stores["bob"].JoinGroup(ctx, groupID, "not-a-code")
		if !errors.Is(err, ErrInviteInvalid) {
			t.Fatalf("error = %v, want ErrInviteInvalid", err)
		}
	})

	t.Run("expired invite rejected and cleaned up", func(t *testing.T) {
		code, err := s.Invite(ctx, groupID, time.Hour)
		if err != nil {
			t.Fatalf("Invite failed: %v", err)
		}

		// Jump the joiner's clock past the expiry.
		joiner := New(docs, identity.Static{User: bob})
		joiner.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		if err := joiner.JoinGroup(ctx, groupID, code); !errors.Is(err, ErrInviteInvalid) {
			t.Fatalf("error = %v, want ErrInviteInvalid", err)
		}

		// Lazy cleanup removed the document.
		if _, err := docs.Get(ctx, invitePath(groupID, code)); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("expired invite still stored")
		}
	})

	t.Run("cleanup deletes only expired invites", func(t *testing.T) {
		stale := New(docs, identity.Static{User: alice})
		stale.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
		expiredCode, err := stale.Invite(ctx, groupID, time.Hour)
		if err != nil {
			t.Fatalf("Invite failed: %v", err)
		}
		freshCode, err := s.Invite(ctx, groupID, time.Hour)
		if err != nil {
			t.Fatalf("Invite failed: %v", err)
		}

		if err := s.CleanupInvites(ctx, groupID); err != nil {
			t.Fatalf("CleanupInvites failed: %v", err)
		}

		if _, err := docs.Get(ctx, invitePath(groupID, expiredCode)); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("expired invite survived cleanup")
		}
		if _, err := docs.Get(ctx, invitePath(groupID, freshCode)); err != nil {
			t.Errorf("fresh invite deleted by cleanup: %v", err)
		}
	})
}

func TestUserGroupsPrunesDeletedGroups(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice)
	s := stores["alice"]

	keepID, _ := s.CreateGroup(ctx, "Keep", "", money.GBP)
	dropID, _ := s.CreateGroup(ctx, "Drop", "", money.GBP)

	if err := s.DeleteGroup(ctx, dropID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	summaries, err := s.UserGroups(ctx)
	if err != nil {
		t.Fatalf("UserGroups failed: %v", err)
	}
	if _, ok := summaries[dropID]; ok {
		t.Error("deleted group still listed")
	}
	if _, ok := summaries[keepID]; !ok {
		t.Error("surviving group missing")
	}

	// The dangling id was pruned from the stored user document.
	var userData models.UserData
	data, err := s.docs.Get(ctx, userPath("alice"))
	if err != nil {
		t.Fatalf("Get user doc failed: %v", err)
	}
	if err := docstore.Decode(data, &userData); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(userData.Groups) != 1 || userData.Groups[0] != keepID {
		t.Errorf("stored groups = %v, want [%s]", userData.Groups, keepID)
	}
}

func TestChangeUserName(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "", money.GBP)

	if err := s.ChangeUserName(ctx, groupID, "alice", "Alice B"); err != nil {
		t.Fatalf("ChangeUserName failed: %v", err)
	}

	members, _ := s.Members(ctx, groupID)
	if members["alice"].DisplayName != "Alice B" {
		t.Errorf("displayName = %q, want Alice B", members["alice"].DisplayName)
	}

	if err := s.ChangeUserName(ctx, groupID, "ghost", "X"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateGroup(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t, alice)
	s := stores["alice"]

	groupID, _ := s.CreateGroup(ctx, "Flat", "old", money.GBP)

	name := "Flat 4b"
	if err := s.UpdateGroup(ctx, groupID, GroupUpdate{Name: &name}); err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}

	group, _ := s.GetGroup(ctx, groupID)
	if group.Name != "Flat 4b" {
		t.Errorf("name = %q, want Flat 4b", group.Name)
	}
	if group.Description != "old" {
		t.Errorf("description = %q, untouched field changed", group.Description)
	}

	if err := s.UpdateGroup(ctx, "nonexistent", GroupUpdate{Name: &name}); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
