package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		categories, err := app.FindCollectionByNameOrId("categories")
		if err != nil {
			return err
		}
		venues, err := app.FindCollectionByNameOrId("venues")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("events")

		collection.Fields.Add(
			&core.RelationField{Name: "organizer", Required: true, CollectionId: users.Id, MaxSelect: 1},
			&core.TextField{Name: "name", Required: true, Max: 200},
			&core.EditorField{Name: "description"},
			&core.RelationField{Name: "category", CollectionId: categories.Id, MaxSelect: 1},
			&core.RelationField{Name: "venue", CollectionId: venues.Id, MaxSelect: 1},
			&core.FileField{Name: "cover_image", MaxSelect: 1, MaxSize: 5242880, MimeTypes: []string{"image/jpeg", "image/png", "image/webp"}},
			&core.FileField{Name: "gallery", MaxSelect: 10, MaxSize: 5242880, MimeTypes: []string{"image/jpeg", "image/png", "image/webp"}},
			&core.DateField{Name: "start_time"},
			&core.DateField{Name: "end_time"},
			&core.BoolField{Name: "is_online"},
			&core.URLField{Name: "online_url"},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"draft", "published", "cancelled"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_events_status_start", false, "status, start_time", "")
		collection.AddIndex("idx_events_organizer", false, "organizer", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
