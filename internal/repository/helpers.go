package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forgo/fete/api/internal/database"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// isUniqueConstraintError checks if an error is a unique constraint violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unique") ||
		strings.Contains(errStr, "duplicate") ||
		strings.Contains(errStr, "already contains")
}

// convertSurrealID converts a SurrealDB ID (which may be a complex object) to a string
func convertSurrealID(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case models.RecordID:
		return fmt.Sprintf("%s:%v", v.Table, v.ID)
	case *models.RecordID:
		if v != nil {
			return fmt.Sprintf("%s:%v", v.Table, v.ID)
		}
	case map[string]interface{}:
		// Handle {"tb": "user", "id": "xxx"} format
		tb, _ := v["tb"].(string)
		if tb == "" {
			tb, _ = v["Table"].(string)
		}
		idVal, ok := v["id"]
		if !ok {
			idVal = v["ID"]
		}
		if tb != "" && idVal != nil {
			return fmt.Sprintf("%s:%v", tb, idVal)
		}
	}
	return fmt.Sprintf("%v", id)
}

// parseTime parses time from the formats the driver returns
func parseTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	case models.CustomDateTime:
		return t.Time, true
	case *models.CustomDateTime:
		if t != nil {
			return t.Time, true
		}
	}
	return time.Time{}, false
}

// normalizeValue rewrites driver-specific values (record ids, datetimes,
// nested maps and arrays) into plain JSON-friendly values.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case models.RecordID, *models.RecordID:
		return convertSurrealID(t)
	case models.CustomDateTime, *models.CustomDateTime:
		parsed, _ := parseTime(t)
		return parsed
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if k == "id" {
				out[k] = convertSurrealID(val)
				continue
			}
			out[k] = normalizeValue(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	}
	return v
}

// decodeRecord converts one SurrealDB row into T via a JSON round trip
func decodeRecord[T any](row interface{}) (*T, error) {
	if row == nil {
		return nil, database.ErrNotFound
	}
	data, ok := normalizeValue(row).(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(jsonBytes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// resultRows extracts the rows of the statement at index idx from a Query
// response ({status, result} wrappers, one per statement).
func resultRows(results []interface{}, idx int) []interface{} {
	if idx < 0 || idx >= len(results) {
		return nil
	}
	resp, ok := results[idx].(map[string]interface{})
	if !ok {
		return nil
	}
	switch rows := resp["result"].(type) {
	case []interface{}:
		return rows
	case nil:
		return nil
	default:
		return []interface{}{rows}
	}
}

// decodeRows decodes every row of the first statement's result
func decodeRows[T any](results []interface{}) ([]*T, error) {
	rows := resultRows(results, 0)
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRecord[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// queryOne runs a query expected to return at most one row and decodes it.
// Returns (nil, nil) when no row matches.
func queryOne[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}) (*T, error) {
	row, err := db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodeRecord[T](row)
}

// queryMany runs a query and decodes all rows of its first statement
func queryMany[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}) ([]*T, error) {
	results, err := db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](results)
}

// WithTransaction executes a function within a transaction context
// If the function returns an error, the transaction is rolled back
func WithTransaction(ctx context.Context, db database.Database, fn func(tx database.Transaction) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// noneIfNil converts a string pointer into a value SurrealDB treats as NONE
// when absent.
func noneIfNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// surrealTime formats a time for a <datetime> cast
func surrealTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Table names
const (
	tableUser        = "user"
	tableEvent       = "event"
	tableMenuSection = "menu_section"
	tableMenuItem    = "menu_item"
	tableOffering    = "offering"
	tableBooking     = "booking"
)

// recordRef returns the full record id for table, accepting "table:key" or a
// bare key. Ids naming another table are rejected so a path parameter can
// never address a record outside the expected table.
func recordRef(table, id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	prefix, key, found := strings.Cut(id, ":")
	if !found {
		return table + ":" + id, true
	}
	if prefix != table || key == "" {
		return "", false
	}
	return id, true
}

// fetchByIDs loads the records of table whose ids are in ids
func fetchByIDs[T any](ctx context.Context, db database.Database, table string, ids []string) ([]*T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT * FROM type::table($table) WHERE type::string(id) INSIDE $ids`
	return queryMany[T](ctx, db, query, map[string]interface{}{
		"table": table,
		"ids":   ids,
	})
}

// uniqueStrings returns the distinct non-empty values in order of first appearance
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
