package core

// Row is one record of an admin data table, keyed by column name
type Row map[string]any

// RowPage is one page of an admin data table
type RowPage struct {
	Table    string   `json:"table"`
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"rows"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Total    int      `json:"total"`
}

// StringValue returns the column's value when it is a non-empty string
func (r Row) StringValue(column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// EphemeralKey finds the ephemeral pubkey for field, preferring the
// field-specific column over the row-wide one.
func (r Row) EphemeralKey(field string) (string, bool) {
	if key, ok := r.StringValue(EphemeralKeyPrefix + field); ok {
		return key, true
	}
	return r.StringValue(EphemeralKeyColumn)
}
