package storage

import "github.com/jackc/pgx/v4"

type assetRow struct {
	assetType, id, payload string
}

type assetBulk struct {
	rows []assetRow
	idx  int
}

func (ar assetRow) toInterface() []interface{} {
	return []interface{}{ar.assetType, ar.id, ar.payload}
}

func copyFromBulk(rows []assetRow) pgx.CopyFromSource {
	return &assetBulk{
		rows: rows,
		idx:  -1,
	}
}

func (ab *assetBulk) Next() bool {
	ab.idx++
	return ab.idx < len(ab.rows)
}

func (ab *assetBulk) Values() ([]interface{}, error) {
	return ab.rows[ab.idx].toInterface(), nil
}

func (ab *assetBulk) Err() error {
	return nil
}
