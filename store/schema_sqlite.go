package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS stores (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    code        TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL DEFAULT '',
    region      TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS staff (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    code              TEXT NOT NULL UNIQUE,
    name              TEXT NOT NULL DEFAULT '',
    role              TEXT NOT NULL DEFAULT 'crew',
    store_id          INTEGER REFERENCES stores(id),
    trust_score       REAL NOT NULL DEFAULT 100,
    performance_score REAL NOT NULL DEFAULT 0,
    last_score_update TEXT,
    active            INTEGER NOT NULL DEFAULT 1,
    created_at        TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_staff_store ON staff(store_id);

CREATE TABLE IF NOT EXISTS raw_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type  TEXT NOT NULL,
    staff_id    INTEGER NOT NULL REFERENCES staff(id),
    store_id    INTEGER NOT NULL REFERENCES stores(id),
    event_time  TEXT NOT NULL,
    payload     TEXT NOT NULL DEFAULT '{}',
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_events_staff_time ON raw_events(staff_id, event_time);
CREATE INDEX IF NOT EXISTS idx_events_store_time ON raw_events(store_id, event_time);
CREATE INDEX IF NOT EXISTS idx_events_type ON raw_events(event_type);

CREATE TABLE IF NOT EXISTS signals (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    source_event_id INTEGER NOT NULL REFERENCES raw_events(id),
    rule_code       TEXT NOT NULL,
    severity        TEXT NOT NULL,
    metadata        TEXT NOT NULL DEFAULT '{}',
    is_valid        INTEGER NOT NULL DEFAULT 1,
    created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_signals_event ON signals(source_event_id);
CREATE INDEX IF NOT EXISTS idx_signals_rule ON signals(rule_code);

CREATE TABLE IF NOT EXISTS staff_rollups (
    id                     INTEGER PRIMARY KEY AUTOINCREMENT,
    staff_id               INTEGER NOT NULL REFERENCES staff(id),
    day                    TEXT NOT NULL,
    trust_score_delta      REAL NOT NULL DEFAULT 0,
    ops_contribution_score REAL NOT NULL DEFAULT 0,
    late_minutes           INTEGER NOT NULL DEFAULT 0,
    tasks_assigned         INTEGER NOT NULL DEFAULT 0,
    tasks_completed        INTEGER NOT NULL DEFAULT 0,
    tasks_failed           INTEGER NOT NULL DEFAULT 0,
    incidents_logged       INTEGER NOT NULL DEFAULT 0,
    computed_at            TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(staff_id, day)
);

CREATE TABLE IF NOT EXISTS store_rollups (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    store_id          INTEGER NOT NULL REFERENCES stores(id),
    day               TEXT NOT NULL,
    attendance_score  REAL NOT NULL DEFAULT 100,
    execution_score   REAL NOT NULL DEFAULT 100,
    compliance_score  REAL NOT NULL DEFAULT 100,
    incident_score    REAL NOT NULL DEFAULT 100,
    overall_ops_score REAL NOT NULL DEFAULT 100,
    incident_count    INTEGER NOT NULL DEFAULT 0,
    signal_summary    TEXT NOT NULL DEFAULT '{}',
    computed_at       TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(store_id, day)
);

CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    topic       TEXT NOT NULL,
    payload     BLOB NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    sent_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id   INTEGER NOT NULL,
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS admin_users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);
`
