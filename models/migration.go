package models

import (
	"log"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&Product{},
		&Order{}, &OrderItem{},
		&Payment{},
		&WebhookEvent{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
