package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"taskboard/internal/models"
)

// SQLiteStore implements the Store interface using SQLite. Each employee
// document is one row with the task lists held in JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer keeps :memory: databases on one connection and
	// avoids SQLITE_BUSY between concurrent writers on file databases.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate&_busy_timeout=5000"
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withConn acquires a dedicated connection for one operation and releases
// it on every return path.
func (s *SQLiteStore) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return unavailable(op, err)
	}
	defer conn.Close()

	return fn(conn)
}

// GetEmployee retrieves an employee document by id.
func (s *SQLiteStore) GetEmployee(ctx context.Context, empID int64) (*models.Employee, error) {
	emp := &models.Employee{}
	err := s.withConn(ctx, "get employee", func(conn *sql.Conn) error {
		var todo, done string
		err := conn.QueryRowContext(ctx, `
			SELECT emp_id, first_name, last_name, todo, done
			FROM employees WHERE emp_id = ?
		`, empID).Scan(&emp.EmpID, &emp.FirstName, &emp.LastName, &todo, &done)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound(empID)
			}
			return fmt.Errorf("failed to get employee: %w", err)
		}

		lists, err := decodeLists(todo, done)
		if err != nil {
			return err
		}
		emp.Todo, emp.Done = lists.Todo, lists.Done
		return nil
	})
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// GetLists retrieves the todo and done lists for an employee.
func (s *SQLiteStore) GetLists(ctx context.Context, empID int64) (models.TaskLists, error) {
	var lists models.TaskLists
	err := s.withConn(ctx, "get lists", func(conn *sql.Conn) error {
		var err error
		lists, err = readLists(ctx, conn, empID)
		return err
	})
	return lists, err
}

// ReplaceLists overwrites both lists in a single statement.
func (s *SQLiteStore) ReplaceLists(ctx context.Context, empID int64, todo, done []models.Task) error {
	return s.withConn(ctx, "replace lists", func(conn *sql.Conn) error {
		return writeLists(ctx, conn, empID, models.TaskLists{Todo: todo, Done: done})
	})
}

// AppendTodo adds a task to the tail of the todo list.
func (s *SQLiteStore) AppendTodo(ctx context.Context, empID int64, task models.Task) error {
	return s.withConn(ctx, "append todo", func(conn *sql.Conn) error {
		return inTx(ctx, conn, func(tx *sql.Tx) error {
			lists, err := readLists(ctx, tx, empID)
			if err != nil {
				return err
			}
			lists.Todo = append(lists.Todo, task)
			return writeLists(ctx, tx, empID, lists)
		})
	})
}

// RemoveByID filters a task out of both lists. A missing task is not an error.
func (s *SQLiteStore) RemoveByID(ctx context.Context, empID int64, taskID string) error {
	return s.withConn(ctx, "remove task", func(conn *sql.Conn) error {
		return inTx(ctx, conn, func(tx *sql.Tx) error {
			lists, err := readLists(ctx, tx, empID)
			if err != nil {
				return err
			}
			return writeLists(ctx, tx, empID, lists.Without(taskID))
		})
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func inTx(ctx context.Context, conn *sql.Conn, fn func(*sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func readLists(ctx context.Context, q queryer, empID int64) (models.TaskLists, error) {
	var todo, done string
	err := q.QueryRowContext(ctx, `SELECT todo, done FROM employees WHERE emp_id = ?`, empID).Scan(&todo, &done)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TaskLists{}, notFound(empID)
		}
		return models.TaskLists{}, fmt.Errorf("failed to read task lists: %w", err)
	}
	return decodeLists(todo, done)
}

func writeLists(ctx context.Context, q queryer, empID int64, lists models.TaskLists) error {
	lists = lists.Normalize()
	todo, err := json.Marshal(lists.Todo)
	if err != nil {
		return fmt.Errorf("failed to encode todo: %w", err)
	}
	done, err := json.Marshal(lists.Done)
	if err != nil {
		return fmt.Errorf("failed to encode done: %w", err)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE employees SET todo = ?, done = ?, updated_at = CURRENT_TIMESTAMP
		WHERE emp_id = ?
	`, string(todo), string(done), empID)
	if err != nil {
		return fmt.Errorf("failed to write task lists: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound(empID)
	}
	return nil
}

func decodeLists(todo, done string) (models.TaskLists, error) {
	var lists models.TaskLists
	if err := json.Unmarshal([]byte(todo), &lists.Todo); err != nil {
		return lists, fmt.Errorf("failed to decode todo: %w", err)
	}
	if err := json.Unmarshal([]byte(done), &lists.Done); err != nil {
		return lists, fmt.Errorf("failed to decode done: %w", err)
	}
	return lists.Normalize(), nil
}
