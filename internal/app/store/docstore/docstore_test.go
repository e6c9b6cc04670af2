package docstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type widget struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"created_at"`
}

func TestRepository_CRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	repo := docstore.NewRepository[widget](db, "widgets")

	w := widget{ID: primitive.NewObjectID(), Name: "a", Status: "active", CreatedAt: time.Now().UTC()}
	id, err := repo.Insert(ctx, &w)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != w.ID {
		t.Errorf("Insert id: got %v, want %v", id, w.ID)
	}

	got, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Name != "a" {
		t.Errorf("Name: got %q, want %q", got.Name, "a")
	}

	if err := repo.UpdateByID(ctx, id, bson.M{"$set": bson.M{"name": "b"}}); err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	got, _ = repo.FindByID(ctx, id)
	if got.Name != "b" {
		t.Errorf("Name after update: got %q, want %q", got.Name, "b")
	}

	ok, err := repo.Exists(ctx, bson.M{"name": "b"})
	if err != nil || !ok {
		t.Errorf("Exists: got %v, %v", ok, err)
	}

	if err := repo.DeleteByID(ctx, id); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if _, err := repo.FindByID(ctx, id); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("FindByID after delete: got %v, want ErrNotFound", err)
	}
	if err := repo.DeleteByID(ctx, id); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
	if err := repo.UpdateByID(ctx, id, bson.M{"$set": bson.M{"name": "c"}}); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("update missing: got %v, want ErrNotFound", err)
	}
}

func TestRepository_UpdateOneIsConditional(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	repo := docstore.NewRepository[widget](db, "widgets")

	w := widget{ID: primitive.NewObjectID(), Status: "active"}
	if _, err := repo.Insert(ctx, &w); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	swap := func() bool {
		ok, err := repo.UpdateOne(ctx,
			bson.M{"_id": w.ID, "status": "active"},
			bson.M{"$set": bson.M{"status": "expired"}})
		if err != nil {
			t.Fatalf("UpdateOne: %v", err)
		}
		return ok
	}
	if !swap() {
		t.Error("first swap should match")
	}
	if swap() {
		t.Error("second swap should not match")
	}
}

func TestRepository_FindPage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	repo := docstore.NewRepository[widget](db, "widgets")

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		w := widget{ID: primitive.NewObjectID(), Name: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if _, err := repo.Insert(ctx, &w); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	items, total, err := repo.FindPage(ctx, bson.M{}, bson.D{{Key: "created_at", Value: -1}}, paging.Params{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("FindPage: %v", err)
	}
	if total != 5 {
		t.Errorf("total: got %d, want 5", total)
	}
	if len(items) != 2 || items[0].Name != "c" || items[1].Name != "b" {
		t.Errorf("page 2: got %+v", items)
	}
}

func TestParseID(t *testing.T) {
	if _, err := docstore.ParseID("nope"); !errors.Is(err, docstore.ErrInvalidID) {
		t.Errorf("got %v, want ErrInvalidID", err)
	}
	id := primitive.NewObjectID()
	got, err := docstore.ParseID(id.Hex())
	if err != nil || got != id {
		t.Errorf("ParseID round trip: got %v, %v", got, err)
	}
}
