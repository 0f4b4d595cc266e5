package game

import (
	"context"
	"errors"
	"testing"

	"github.com/mafianight/server/internal/kv"
)

func TestStateStoreRoundTrip(t *testing.T) {
	store := NewStateStore(kv.NewMemory())
	ctx := context.Background()

	state := &State{
		RoomID:            "room-1",
		Phase:             PhaseNight,
		DayNumber:         2,
		Players:           fixedRoster(),
		EliminatedPlayers: []string{"c1"},
		Settings:          DefaultSettings(),
	}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := store.Load(ctx, "room-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Phase != PhaseNight || loaded.DayNumber != 2 {
		t.Fatalf("state diverged after round trip: %+v", loaded)
	}
	if len(loaded.Players) != 8 || loaded.Players[0].Role != RoleMafia {
		t.Fatalf("players diverged after round trip: %+v", loaded.Players)
	}
	if len(loaded.EliminatedPlayers) != 1 || loaded.EliminatedPlayers[0] != "c1" {
		t.Fatalf("eliminations diverged: %v", loaded.EliminatedPlayers)
	}
}

func TestStateStoreLoadMissing(t *testing.T) {
	store := NewStateStore(kv.NewMemory())
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestStateStoreDelete(t *testing.T) {
	store := NewStateStore(kv.NewMemory())
	ctx := context.Background()

	state := &State{RoomID: "room-1", Phase: PhaseStarting, Players: fixedRoster()}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, "room-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Load(ctx, "room-1"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound after delete, got %v", err)
	}
}

func TestNightActionRecord(t *testing.T) {
	store := NewStateStore(kv.NewMemory())
	ctx := context.Background()

	if err := store.SetNightAction(ctx, "room-1", 1, RoleMafia, "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	actions, err := store.AllNightActions(ctx, "room-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actions["mafia_target"] != "c1" || actions["mafia_selected"] != "true" {
		t.Fatalf("unexpected record: %v", actions)
	}

	// day-scoped: day 2 has its own record
	other, err := store.AllNightActions(ctx, "room-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("day 2 record should be empty, got %v", other)
	}

	if err := store.ClearNightActions(ctx, "room-1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cleared, _ := store.AllNightActions(ctx, "room-1", 1)
	if len(cleared) != 0 {
		t.Fatalf("record should be discarded, got %v", cleared)
	}
}

func TestClearNightActionRemovesSingleRole(t *testing.T) {
	store := NewStateStore(kv.NewMemory())
	ctx := context.Background()

	if err := store.SetNightAction(ctx, "room-1", 1, RoleMafia, "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetNightAction(ctx, "room-1", 1, RoleDoctor, "c2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.ClearNightAction(ctx, "room-1", 1, RoleDoctor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	actions, err := store.AllNightActions(ctx, "room-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := actions["doctor_target"]; ok {
		t.Fatalf("doctor fields should be gone: %v", actions)
	}
	if actions["mafia_target"] != "c1" || actions["mafia_selected"] != "true" {
		t.Fatalf("mafia record should survive: %v", actions)
	}
}

func TestInvestigationLookup(t *testing.T) {
	store := NewStateStore(kv.NewMemory())
	ctx := context.Background()

	if err := store.SaveInvestigation(ctx, "room-1", 1, "m1", RoleMafia); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveInvestigation(ctx, "room-1", 2, "c1", RoleCitizen); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	role, err := store.Investigation(ctx, "room-1", 1, "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != string(RoleMafia) {
		t.Fatalf("expected mafia, got %q", role)
	}

	// missing result is empty, not an error
	role, err = store.Investigation(ctx, "room-1", 1, "c3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != "" {
		t.Fatalf("expected empty result, got %q", role)
	}

	all, err := store.AllInvestigations(ctx, "room-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 || all["m1"] != string(RoleMafia) {
		t.Fatalf("unexpected day-1 results: %v", all)
	}
}
