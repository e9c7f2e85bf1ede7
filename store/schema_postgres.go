package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS stores (
    id          BIGSERIAL PRIMARY KEY,
    code        TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL DEFAULT '',
    region      TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS staff (
    id                BIGSERIAL PRIMARY KEY,
    code              TEXT NOT NULL UNIQUE,
    name              TEXT NOT NULL DEFAULT '',
    role              TEXT NOT NULL DEFAULT 'crew',
    store_id          BIGINT REFERENCES stores(id),
    trust_score      DOUBLE PRECISION NOT NULL DEFAULT 100,
    performance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_score_update TIMESTAMPTZ,
    active            BOOLEAN NOT NULL DEFAULT TRUE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_staff_store ON staff(store_id);

CREATE TABLE IF NOT EXISTS raw_events (
    id          BIGSERIAL PRIMARY KEY,
    event_type  TEXT NOT NULL,
    staff_id    BIGINT NOT NULL REFERENCES staff(id),
    store_id    BIGINT NOT NULL REFERENCES stores(id),
    event_time  TIMESTAMPTZ NOT NULL,
    payload     JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_events_staff_time ON raw_events(staff_id, event_time);
CREATE INDEX IF NOT EXISTS idx_events_store_time ON raw_events(store_id, event_time);
CREATE INDEX IF NOT EXISTS idx_events_type ON raw_events(event_type);

CREATE TABLE IF NOT EXISTS signals (
    id              BIGSERIAL PRIMARY KEY,
    source_event_id BIGINT NOT NULL REFERENCES raw_events(id),
    rule_code       TEXT NOT NULL,
    severity        TEXT NOT NULL,
    metadata        JSONB NOT NULL DEFAULT '{}',
    is_valid        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_signals_event ON signals(source_event_id);
CREATE INDEX IF NOT EXISTS idx_signals_rule ON signals(rule_code);

CREATE TABLE IF NOT EXISTS staff_rollups (
    id                     BIGSERIAL PRIMARY KEY,
    staff_id               BIGINT NOT NULL REFERENCES staff(id),
    day                    TEXT NOT NULL,
    trust_score_delta      DOUBLE PRECISION NOT NULL DEFAULT 0,
    ops_contribution_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    late_minutes           INTEGER NOT NULL DEFAULT 0,
    tasks_assigned         INTEGER NOT NULL DEFAULT 0,
    tasks_completed        INTEGER NOT NULL DEFAULT 0,
    tasks_failed           INTEGER NOT NULL DEFAULT 0,
    incidents_logged       INTEGER NOT NULL DEFAULT 0,
    computed_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(staff_id, day)
);

CREATE TABLE IF NOT EXISTS store_rollups (
    id                BIGSERIAL PRIMARY KEY,
    store_id          BIGINT NOT NULL REFERENCES stores(id),
    day               TEXT NOT NULL,
    attendance_score  DOUBLE PRECISION NOT NULL DEFAULT 100,
    execution_score   DOUBLE PRECISION NOT NULL DEFAULT 100,
    compliance_score  DOUBLE PRECISION NOT NULL DEFAULT 100,
    incident_score    DOUBLE PRECISION NOT NULL DEFAULT 100,
    overall_ops_score DOUBLE PRECISION NOT NULL DEFAULT 100,
    incident_count    INTEGER NOT NULL DEFAULT 0,
    signal_summary    JSONB NOT NULL DEFAULT '{}',
    computed_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(store_id, day)
);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   BIGINT NOT NULL,
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS admin_users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
