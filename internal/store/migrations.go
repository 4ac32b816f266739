package store

// The column types are accepted by both PostgreSQL and SQLite.
const createListings = `
CREATE TABLE IF NOT EXISTS listings (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    price       DOUBLE PRECISION DEFAULT 0.0,
    category    TEXT DEFAULT 'general',
    deal_score  DOUBLE PRECISION DEFAULT 0.0,
    url         TEXT,
    created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const createDealScoreIndex = `CREATE INDEX IF NOT EXISTS idx_deal_score ON listings(deal_score DESC)`

const dropListings = `DROP TABLE IF EXISTS listings`

var schema = []string{createListings, createDealScoreIndex}
