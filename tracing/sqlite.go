// Package tracing records coherence transitions and flows.
package tracing

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/msisim/timing/coherence"
)

// SQLiteFlowWriter is a hook that writes transitions and completed flows to
// a SQLite database.
type SQLiteFlowWriter struct {
	*sql.DB
	transitionStatement *sql.Stmt
	flowStatement       *sql.Stmt

	prefix      string
	dbName      string
	transitions []coherence.Transition
	flows       []*coherence.Flow
	batchSize   int
}

// NewSQLiteFlowWriter creates a writer. The database is named
// <prefix>_<xid>.sqlite3 once Init is called.
func NewSQLiteFlowWriter(prefix string) *SQLiteFlowWriter {
	if prefix == "" {
		prefix = "msisim_trace"
	}

	w := &SQLiteFlowWriter{
		prefix:    prefix,
		batchSize: 100000,
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// WithBatchSize sets the number of buffered records that triggers a flush.
func (w *SQLiteFlowWriter) WithBatchSize(n int) *SQLiteFlowWriter {
	w.batchSize = n
	return w
}

// DBName returns the file name of the database.
func (w *SQLiteFlowWriter) DBName() string {
	return w.dbName
}

// Init creates the database and its tables.
func (w *SQLiteFlowWriter) Init() error {
	w.dbName = w.prefix + "_" + xid.New().String() + ".sqlite3"

	_, err := os.Stat(w.dbName)
	if err == nil {
		return fmt.Errorf("file %s already exists", w.dbName)
	}

	db, err := sql.Open("sqlite3", w.dbName)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.dbName, err)
	}
	w.DB = db

	if err := w.createTables(); err != nil {
		return err
	}

	return w.prepareStatements()
}

// Func implements sim.Hook.
func (w *SQLiteFlowWriter) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case coherence.HookPosTransition:
		w.transitions = append(w.transitions, ctx.Item.(coherence.Transition))
	case coherence.HookPosFlowEnd:
		w.flows = append(w.flows, ctx.Item.(*coherence.Flow))
	default:
		return
	}

	if len(w.transitions)+len(w.flows) >= w.batchSize {
		w.Flush()
	}
}

// Flush writes all the buffered records to the database. Tags are stored as
// their int64 bit pattern because SQLite integers are signed.
func (w *SQLiteFlowWriter) Flush() {
	if w.DB == nil || len(w.transitions)+len(w.flows) == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for _, t := range w.transitions {
		_, err := w.transitionStatement.Exec(
			t.Cycle,
			t.Controller,
			t.Set,
			t.Way,
			int64(t.Tag),
			t.From,
			t.Event,
			t.To,
			t.Outcome,
			t.FlowID,
		)
		if err != nil {
			panic(err)
		}
	}

	for _, f := range w.flows {
		_, err := w.flowStatement.Exec(
			f.ID,
			f.ProducerID(),
			f.AncestorID(),
			f.Kind,
			f.Generator,
			int64(f.Tag),
			f.BeginCycle,
			f.EndCycle,
		)
		if err != nil {
			panic(err)
		}
	}

	w.transitions = nil
	w.flows = nil
}

// Close flushes the buffer and closes the database.
func (w *SQLiteFlowWriter) Close() error {
	if w.DB == nil {
		return nil
	}

	w.Flush()
	err := w.DB.Close()
	w.DB = nil

	return err
}

func (w *SQLiteFlowWriter) createTables() error {
	queries := []string{
		`create table transition
		(
			cycle      integer      not null,
			controller varchar(100) not null,
			set_id     integer,
			way        integer,
			tag        integer,
			from_state varchar(20),
			event      varchar(40),
			to_state   varchar(20),
			outcome    varchar(20),
			flow_id    varchar(200)
		);`,
		`create index transition_tag_index on transition (tag);`,
		`create index transition_controller_index on transition (controller);`,
		`create table flow
		(
			id          varchar(200) not null,
			producer_id varchar(200),
			ancestor_id varchar(200),
			kind        varchar(40),
			generator   varchar(100),
			tag         integer,
			begin_cycle integer not null,
			end_cycle   integer not null
		);`,
		`create index flow_id_index on flow (id);`,
		`create index flow_ancestor_index on flow (ancestor_id);`,
	}

	for _, q := range queries {
		if _, err := w.Exec(q); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return nil
}

func (w *SQLiteFlowWriter) prepareStatements() error {
	stmt, err := w.Prepare(
		`INSERT INTO transition VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	w.transitionStatement = stmt

	stmt, err = w.Prepare(`INSERT INTO flow VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	w.flowStatement = stmt

	return nil
}

func (w *SQLiteFlowWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}
	return res
}

// SQLiteFlowReader reads a database produced by SQLiteFlowWriter.
type SQLiteFlowReader struct {
	*sql.DB

	filename string
}

// NewSQLiteFlowReader creates a reader for the given file.
func NewSQLiteFlowReader(filename string) *SQLiteFlowReader {
	return &SQLiteFlowReader{filename: filename}
}

// Init opens the database.
func (r *SQLiteFlowReader) Init() error {
	db, err := sql.Open("sqlite3", r.filename)
	if err != nil {
		return err
	}

	r.DB = db
	return nil
}

// ListControllers returns the controllers that appear in the trace.
func (r *SQLiteFlowReader) ListControllers() ([]string, error) {
	rows, err := r.Query(
		"SELECT DISTINCT controller FROM transition ORDER BY controller")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var controllers []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		controllers = append(controllers, c)
	}

	return controllers, rows.Err()
}

// LineHistory returns the fired transitions of a tag at one controller in
// cycle order.
func (r *SQLiteFlowReader) LineHistory(
	controller string,
	tag uint64,
) ([]coherence.Transition, error) {
	rows, err := r.Query(`
		SELECT cycle, controller, set_id, way, tag, from_state, event,
			to_state, outcome, flow_id
		FROM transition
		WHERE controller = ? AND tag = ? AND outcome = ?
		ORDER BY rowid`,
		controller, int64(tag), coherence.OutcomeFired)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []coherence.Transition
	for rows.Next() {
		var (
			t   coherence.Transition
			tag int64
		)
		err := rows.Scan(&t.Cycle, &t.Controller, &t.Set, &t.Way, &tag,
			&t.From, &t.Event, &t.To, &t.Outcome, &t.FlowID)
		if err != nil {
			return nil, err
		}
		t.Tag = uint64(tag)
		history = append(history, t)
	}

	return history, rows.Err()
}

// CountFlows returns the number of completed flows stored.
func (r *SQLiteFlowReader) CountFlows() (int, error) {
	var n int
	err := r.QueryRow("SELECT COUNT(*) FROM flow").Scan(&n)
	return n, err
}
