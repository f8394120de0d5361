package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		tickets, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}

		orders := core.NewBaseCollection("orders")
		orders.Fields.Add(
			&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1},
			&core.TextField{Name: "reference", Required: true, Max: 20},
			&core.NumberField{Name: "total_cents", Required: true, OnlyInt: true, Min: types.Pointer(0.0)},
			&core.SelectField{Name: "payment_status", Required: true, MaxSelect: 1, Values: []string{"pending", "paid", "failed", "refunded"}},
			&core.TextField{Name: "payment_method", Max: 50},
			&core.TextField{Name: "transaction_ref", Max: 100},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		orders.AddIndex("idx_orders_reference", true, "reference", "")
		orders.AddIndex("idx_orders_user", false, "user", "")

		if err := app.Save(orders); err != nil {
			return err
		}

		items := core.NewBaseCollection("order_items")
		items.Fields.Add(
			&core.RelationField{Name: "order", Required: true, CollectionId: orders.Id, MaxSelect: 1, CascadeDelete: true},
			&core.RelationField{Name: "ticket", Required: true, CollectionId: tickets.Id, MaxSelect: 1},
			&core.NumberField{Name: "quantity", Required: true, OnlyInt: true, Min: types.Pointer(1.0)},
			// Unit price captured at purchase time.
			&core.NumberField{Name: "price_cents", Required: true, OnlyInt: true, Min: types.Pointer(0.0)},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		items.AddIndex("idx_order_items_order", false, "`order`", "")

		return app.Save(items)
	}, func(app core.App) error {
		for _, name := range []string{"order_items", "orders"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
