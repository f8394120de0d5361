package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		tickets, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("reservations")

		collection.Fields.Add(
			&core.RelationField{Name: "ticket", Required: true, CollectionId: tickets.Id, MaxSelect: 1},
			// Optional: guest holds are anonymous.
			&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1},
			&core.NumberField{Name: "quantity", Required: true, OnlyInt: true, Min: types.Pointer(1.0)},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"pending", "confirmed", "expired", "cancelled"}},
			&core.DateField{Name: "expires_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// The sweep scans pending rows past their deadline.
		collection.AddIndex("idx_reservations_sweep", false, "status, expires_at", "")
		collection.AddIndex("idx_reservations_user", false, "user", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("reservations")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
