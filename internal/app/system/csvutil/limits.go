package csvutil

// MaxExportRows caps a single transaction export.
const MaxExportRows = 100000
