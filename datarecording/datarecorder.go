// Package datarecording stores simulation results in a SQLite database.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables created.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and closes the database. Closing twice is a no-op.
	Close() error
}

// New creates a DataRecorder that writes to path + ".sqlite3". An empty path
// selects a unique name. An existing file is never overwritten.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = "vmsim_" + xid.New().String()
	}

	filename := path
	if !strings.HasSuffix(filename, ".sqlite3") {
		filename += ".sqlite3"
	}

	_, err := os.Stat(filename)
	if err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	w := NewWithDB(db)
	w.(*sqliteWriter).filename = filename

	return w, nil
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() {
		err := w.Close()
		if err != nil {
			log.Printf("closing recorder: %v", err)
		}
	})

	return w
}

type table struct {
	name       string
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	filename   string
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	closed     bool
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("entry %T is not a struct", entry)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s of %T is not exported", field.Name, entry)
		}

		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("field %s of %T has unsupported type %s",
				field.Name, entry, field.Type)
		}
	}

	return nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	err := checkStructFields(sampleEntry)
	if err != nil {
		return err
	}

	if _, exists := t.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`

	_, err = t.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("creating table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{
		name:       tableName,
		structType: reflect.TypeOf(sampleEntry),
	}
	t.tableOrder = append(t.tableOrder, tableName)

	return nil
}

func (t *sqliteWriter) InsertData(tableName string, entry any) error {
	table, exists := t.tables[tableName]
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		return fmt.Errorf("table %s holds %s, got %T",
			tableName, table.structType, entry)
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		return t.Flush()
	}

	return nil
}

func (t *sqliteWriter) ListTables() []string {
	tables := make([]string, len(t.tableOrder))
	copy(tables, t.tableOrder)

	return tables
}

func (t *sqliteWriter) Flush() error {
	if t.entryCount == 0 {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return err
	}

	for _, name := range t.tableOrder {
		err = t.flushTable(tx, t.tables[name])
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	for _, table := range t.tables {
		table.entries = nil
	}

	t.entryCount = 0

	return nil
}

func (t *sqliteWriter) flushTable(tx *sql.Tx, table *table) error {
	if len(table.entries) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(insertStatement(table.name, table.entries[0]))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range table.entries {
		v := reflect.ValueOf(entry)
		values := make([]any, 0, v.NumField())

		for i := 0; i < v.NumField(); i++ {
			values = append(values, v.Field(i).Interface())
		}

		_, err = stmt.Exec(values...)
		if err != nil {
			return fmt.Errorf("inserting into %s: %w", table.name, err)
		}
	}

	return nil
}

func insertStatement(tableName string, entry any) string {
	n := structs.Names(entry)
	for i := range n {
		n[i] = "?"
	}

	return "INSERT INTO " + tableName + " VALUES (" + strings.Join(n, ", ") + ")"
}

func (t *sqliteWriter) Close() error {
	if t.closed {
		return nil
	}

	t.closed = true

	flushErr := t.Flush()
	closeErr := t.DB.Close()

	return errors.Join(flushErr, closeErr)
}
