package database

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// EnsureRecordExists creates an empty processing record if needed.
// returns true if a new row was created, false otherwise.
func EnsureRecordExists(db Querier, entityID string) (bool, error) {
	queryBuilder := psql.Insert("processing_records").
		Columns("entity_id", "extraction_status", "ai_status", "updated_at").
		Values(entityID, StatusPending, StatusPending, time.Now().Unix()).
		Suffix("ON CONFLICT(entity_id) DO NOTHING")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build SQL query for EnsureRecordExists: %w", err)
	}

	result, err := db.Exec(sqlStr, args...)
	if err != nil {
		return false, fmt.Errorf("failed to ensure processing record for %s: %w", entityID, err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// UpdateRecordColumns overwrites exactly the given columns on an entity's
// processing record. Absent columns are left untouched, which is what makes
// the caller's merge-on-write semantics hold. updated_at is always bumped.
func UpdateRecordColumns(db Querier, entityID string, cols map[string]interface{}) error {
	if len(cols) == 0 {
		return nil
	}

	updateMap := make(map[string]interface{}, len(cols)+1)
	for k, v := range cols {
		updateMap[k] = v
	}
	updateMap["updated_at"] = time.Now().Unix()

	queryBuilder := psql.Update("processing_records").
		SetMap(updateMap).
		Where(sq.Eq{"entity_id": entityID})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for UpdateRecordColumns: %w", err)
	}

	_, err = db.Exec(sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to update processing record for %s: %w", entityID, err)
	}
	return nil
}
