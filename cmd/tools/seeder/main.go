package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedMethods(db)
	zoneIDs := seedZones(db)
	methodIDs := loadMethodIDs(db)
	seedRates(db, zoneIDs, methodIDs)
	seedPromotions(db)

	log.Println("Seeding completed successfully!")
}

func seedMethods(db *sql.DB) {
	methods := []struct {
		Code    string
		Name    string
		MinDays int
		MaxDays int
	}{
		{"standard", "Standard Delivery", 3, 5},
		{"express", "Express Delivery", 1, 2},
		{"pickup", "Store Pickup", 0, 1},
	}

	fmt.Println("Seeding Shipping Methods...")
	for _, m := range methods {
		_, err := db.Exec(`
			INSERT INTO shipping_methods (code, name, min_delivery_days, max_delivery_days, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;
		`, m.Code, m.Name, m.MinDays, m.MaxDays)
		if err != nil {
			log.Printf("Failed to seed method %s: %v", m.Code, err)
		}
	}
}

func seedZones(db *sql.DB) map[string]string {
	zones := []struct {
		Name      string
		Countries string
		Cities    string
	}{
		{"Dhaka Metro", "{BD}", "{Dhaka}"},
		{"Chattogram", "{BD}", "{Chattogram}"},
		{"Bangladesh Rest", "{BD}", "{}"},
	}

	fmt.Println("Seeding Shipping Zones...")
	ids := make(map[string]string)
	for _, z := range zones {
		var id string
		err := db.QueryRow(`
			INSERT INTO shipping_zones (name, countries, cities, active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (name) DO UPDATE SET countries = EXCLUDED.countries
			RETURNING id;
		`, z.Name, z.Countries, z.Cities).Scan(&id)
		if err != nil {
			log.Printf("Failed to seed zone %s: %v", z.Name, err)
			continue
		}
		ids[z.Name] = id
	}
	return ids
}

func loadMethodIDs(db *sql.DB) map[string]string {
	rows, err := db.Query(`SELECT code, id FROM shipping_methods`)
	if err != nil {
		log.Fatalf("Failed to load method ids: %v", err)
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var code, id string
		if err := rows.Scan(&code, &id); err != nil {
			log.Fatalf("Failed to scan method id: %v", err)
		}
		ids[code] = id
	}
	return ids
}

func seedRates(db *sql.DB, zoneIDs, methodIDs map[string]string) {
	rates := []struct {
		Zone     string
		Method   string
		CalcType string
		BaseRate string
		PerKg    sql.NullString
		Tiers    sql.NullString
		Handling string
		Fuel     string
	}{
		{"Dhaka Metro", "standard", "flat", "60", sql.NullString{}, sql.NullString{}, "10", "5"},
		{"Dhaka Metro", "express", "weight_based", "50", sql.NullString{String: "20", Valid: true}, sql.NullString{}, "0", "0"},
		{"Dhaka Metro", "pickup", "free", "0", sql.NullString{}, sql.NullString{}, "0", "0"},
		{"Chattogram", "standard", "weight_based", "80", sql.NullString{String: "25", Valid: true}, sql.NullString{}, "10", "5"},
		{"Bangladesh Rest", "standard", "price_based", "120", sql.NullString{},
			sql.NullString{String: `[{"minValue":"0","rate":"150"},{"minValue":"1000","rate":"100"},{"minValue":"3000","rate":"50"}]`, Valid: true}, "10", "5"},
	}

	fmt.Println("Seeding Shipping Rates...")
	for _, r := range rates {
		zoneID, ok := zoneIDs[r.Zone]
		if !ok {
			continue
		}
		methodID, ok := methodIDs[r.Method]
		if !ok {
			continue
		}
		_, err := db.Exec(`
			INSERT INTO shipping_rates (
				zone_id, method_id, calculation_type, base_rate, rate_per_kg, tiers,
				handling_fee, fuel_surcharge, active
			)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric, COALESCE($6::jsonb, '[]'::jsonb), $7::numeric, $8::numeric, TRUE)
			ON CONFLICT DO NOTHING;
		`, zoneID, methodID, r.CalcType, r.BaseRate, r.PerKg, r.Tiers, r.Handling, r.Fuel)
		if err != nil {
			log.Printf("Failed to seed rate %s/%s: %v", r.Zone, r.Method, err)
		}
	}
}

func seedPromotions(db *sql.DB) {
	promos := []struct {
		Name    string
		Code    string
		Kind    string
		Percent string
		Amount  string
		Status  string
	}{
		{"Welcome 10%", "WELCOME10", "percentage", "10", "0", "active"},
		{"Flat 150 Off", "SAVE150", "fixed_amount", "0", "150", "active"},
		{"Free Delivery Week", "FREESHIP", "free_shipping", "0", "0", "active"},
	}

	fmt.Println("Seeding Promotions...")
	for _, p := range promos {
		var id string
		err := db.QueryRow(`
			INSERT INTO promotions (name, kind, percent, amount, start_at, end_at, status)
			VALUES ($1, $2, $3::numeric, $4::numeric, now() - interval '1 day', now() + interval '90 days', $5)
			ON CONFLICT DO NOTHING
			RETURNING id;
		`, p.Name, p.Kind, p.Percent, p.Amount, p.Status).Scan(&id)
		if err != nil {
			log.Printf("Skipping promotion %s: %v", p.Name, err)
			continue
		}
		if _, err := db.Exec(`
			INSERT INTO promo_codes (promotion_id, code, active)
			VALUES ($1, $2, TRUE)
			ON CONFLICT (code) DO NOTHING;
		`, id, p.Code); err != nil {
			log.Printf("Failed to seed code %s: %v", p.Code, err)
		}
	}
}
