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

		collection := core.NewBaseCollection("ticket_ledger")

		collection.Fields.Add(
			&core.RelationField{Name: "ticket", Required: true, CollectionId: tickets.Id, MaxSelect: 1, CascadeDelete: true},
			&core.NumberField{Name: "total", Required: true, OnlyInt: true, Min: types.Pointer(0.0)},
			&core.NumberField{Name: "reserved", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.NumberField{Name: "sold", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// One ledger row per ticket type; conditional updates key on it.
		collection.AddIndex("idx_ledger_ticket", true, "ticket", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("ticket_ledger")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
