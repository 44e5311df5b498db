package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/agriroute/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveFreight(f *models.Freight) error {
	deal, err := dealJSON(f.Deal)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`INSERT INTO freights(id, producer_id, pricing_type, price, price_per_km, price_per_ton, required_trucks, weight_kg, distance_km, origin_city, dest_city, status, deal, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		f.ID, f.ProducerID, f.PricingType, f.Price, f.PricePerKm, f.PricePerTon,
		f.RequiredTrucks, f.WeightKg, f.DistanceKm, f.OriginCity, f.DestCity,
		f.Status, deal, f.CreatedAt, f.UpdatedAt)
	return err
}

func (p *PostgresStore) GetFreight(id string) (*models.Freight, error) {
	row := p.db.QueryRow(`SELECT id, producer_id, pricing_type, price, price_per_km, price_per_ton, required_trucks, weight_kg, distance_km, origin_city, dest_city, status, deal, created_at, updated_at
		FROM freights WHERE id=$1`, id)
	var f models.Freight
	var deal []byte
	err := row.Scan(&f.ID, &f.ProducerID, &f.PricingType, &f.Price, &f.PricePerKm, &f.PricePerTon,
		&f.RequiredTrucks, &f.WeightKg, &f.DistanceKm, &f.OriginCity, &f.DestCity,
		&f.Status, &deal, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(deal) > 0 {
		var d models.DealSnapshot
		if err := json.Unmarshal(deal, &d); err == nil {
			f.Deal = &d
		}
	}
	return &f, nil
}

func (p *PostgresStore) UpdateFreightStatus(id, status string) error {
	res, err := p.db.Exec(`UPDATE freights SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveFreight copies the row into freight_history and removes it from
// the live table, in one transaction.
func (p *PostgresStore) ArchiveFreight(id string) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO freight_history SELECT *, now() AS archived_at FROM freights WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM freights WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) SaveAssignment(a *models.FreightAssignment) error {
	_, err := p.db.Exec(`INSERT INTO freight_assignments(freight_id, driver_id, status, agreed_price, updated_at)
		VALUES($1,$2,$3,$4,$5)
		ON CONFLICT (freight_id, driver_id) DO UPDATE SET status=EXCLUDED.status, agreed_price=EXCLUDED.agreed_price, updated_at=EXCLUDED.updated_at`,
		a.FreightID, a.DriverID, a.Status, a.AgreedPrice, a.UpdatedAt)
	return err
}

func (p *PostgresStore) GetAssignment(freightID, driverID string) (*models.FreightAssignment, error) {
	row := p.db.QueryRow(`SELECT freight_id, driver_id, status, agreed_price, updated_at
		FROM freight_assignments WHERE freight_id=$1 AND driver_id=$2`, freightID, driverID)
	var a models.FreightAssignment
	err := row.Scan(&a.FreightID, &a.DriverID, &a.Status, &a.AgreedPrice, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (p *PostgresStore) UpdateAssignmentStatus(freightID, driverID, status string) error {
	res, err := p.db.Exec(`UPDATE freight_assignments SET status=$1, updated_at=$2 WHERE freight_id=$3 AND driver_id=$4`,
		status, time.Now(), freightID, driverID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) SaveServiceRequest(r *models.ServiceRequest) error {
	_, err := p.db.Exec(`INSERT INTO service_requests(id, requester_id, provider_id, service_type, urgency, summary, city, status, contact_name, contact_phone, address, lat, lon, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		r.ID, r.RequesterID, r.ProviderID, r.ServiceType, r.Urgency, r.Summary, r.City,
		r.Status, r.ContactName, r.ContactPhone, r.Address, r.Lat, r.Lon, r.CreatedAt, r.UpdatedAt)
	return err
}

func (p *PostgresStore) GetServiceRequest(id string) (*models.ServiceRequest, error) {
	row := p.db.QueryRow(`SELECT id, requester_id, provider_id, service_type, urgency, summary, city, status, contact_name, contact_phone, address, lat, lon, created_at, updated_at
		FROM service_requests WHERE id=$1`, id)
	var r models.ServiceRequest
	err := row.Scan(&r.ID, &r.RequesterID, &r.ProviderID, &r.ServiceType, &r.Urgency, &r.Summary, &r.City,
		&r.Status, &r.ContactName, &r.ContactPhone, &r.Address, &r.Lat, &r.Lon, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PostgresStore) UpdateServiceRequestStatus(id, status string) error {
	res, err := p.db.Exec(`UPDATE service_requests SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func dealJSON(d *models.DealSnapshot) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}
