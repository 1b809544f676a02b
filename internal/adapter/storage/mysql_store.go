package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		role VARCHAR(16) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		quantity INT NOT NULL DEFAULT 0,
		description TEXT,
		is_deleted TINYINT(1) NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		inventory_id BIGINT NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		quantity INT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_requests_status (status),
		INDEX idx_requests_inventory (inventory_id),
		INDEX idx_requests_user (user_id)
	)`,
}

// OpenMySQL connects with a go-sql-driver DSN such as
// "user:pass@tcp(localhost:3306)/stockdesk?parseTime=true".
func OpenMySQL(dsn string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewMySQLStore(db), nil
}

func NewMySQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, schema: mysqlSchema}
}
