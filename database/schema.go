package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the necessary database tables if they don't exist
func InitSchema(db *sql.DB) error {
	log.Info("Initializing thumbnail-analyze-service database schema...")

	usersTableSQL := `
	CREATE TABLE IF NOT EXISTS users(
		id CHAR(36) NOT NULL,
		email VARCHAR(255) NOT NULL,
		subscription_tier ENUM('free', 'creator') NOT NULL DEFAULT 'free',
		analyses_this_month INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE INDEX email_index (email)
	)`

	if _, err := db.Exec(usersTableSQL); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	log.Info("Users table created/verified")

	analysesTableSQL := `
	CREATE TABLE IF NOT EXISTS analyses(
		id CHAR(36) NOT NULL,
		user_id CHAR(36) NOT NULL,
		video_title VARCHAR(255),
		category VARCHAR(128),
		notes TEXT,
		status VARCHAR(32) NOT NULL DEFAULT 'completed',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX user_id_index (user_id),
		INDEX category_index (category)
	)`

	if _, err := db.Exec(analysesTableSQL); err != nil {
		return fmt.Errorf("failed to create analyses table: %w", err)
	}
	log.Info("Analyses table created/verified")

	thumbnailsTableSQL := `
	CREATE TABLE IF NOT EXISTS thumbnails(
		id CHAR(36) NOT NULL,
		analysis_id CHAR(36) NOT NULL,
		image_url TEXT NOT NULL,
		image_s3_key VARCHAR(512),
		order_index INT NOT NULL,
		overall_score INT NOT NULL,
		face_visibility_score INT NOT NULL,
		text_readability_score INT NOT NULL,
		color_contrast_score INT NOT NULL,
		visual_clarity_score INT NOT NULL,
		emotional_impact_score INT NOT NULL,
		predicted_ctr DOUBLE NOT NULL,
		is_winner BOOL NOT NULL DEFAULT false,
		face_detected BOOL NOT NULL DEFAULT false,
		text_detected VARCHAR(255) NOT NULL DEFAULT '',
		recommendations JSON,
		ai_analysis_raw JSON,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX analysis_id_index (analysis_id)
	)`

	if _, err := db.Exec(thumbnailsTableSQL); err != nil {
		return fmt.Errorf("failed to create thumbnails table: %w", err)
	}
	log.Info("Thumbnails table created/verified")

	return nil
}
