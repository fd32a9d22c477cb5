package storage

import (
	_ "embed"
)

const (
	insertImportSQL = `
INSERT INTO imports (
                     product,
                     source_file,
                     obs_id,
                     fine_chans,
                     tiles,
                     recv_chan,
                     hostname,
                     record_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectImportSQL = `
SELECT
    id,
    imported_at,
    product,
    source_file,
    obs_id,
    fine_chans,
    tiles,
    recv_chan,
    hostname,
    record_count
FROM imports
WHERE
    id = ?`

	selectImportsSQL = `
SELECT
    id,
    imported_at,
    product,
    source_file,
    obs_id,
    fine_chans,
    tiles,
    recv_chan,
    hostname,
    record_count
FROM imports
ORDER BY id`

	insertFringeRecordsSQL = `
    INSERT INTO fringe_records (
        import_id,
        baseline,
        channel,
        frequency_mhz,
        phase_x_deg,
        phase_y_deg
    )
    VALUES `

	insertAutoRecordsSQL = `
    INSERT INTO auto_records (
        import_id,
        antenna,
        channel,
        frequency_mhz,
        power_xx_db,
        power_yy_db
    )
    VALUES `

	insertPacketLossSQL = `
    INSERT INTO packet_loss (
        import_id,
        input,
        lost_packets
    )
    VALUES `

	selectFringeSeriesSQL = `
SELECT
    baseline,
    channel,
    frequency_mhz,
    phase_x_deg,
    phase_y_deg
FROM fringe_records
WHERE
    import_id = ?
    AND baseline BETWEEN ? AND ?
    AND frequency_mhz BETWEEN ? AND ?
ORDER BY baseline, channel`

	selectAutoSeriesSQL = `
SELECT
    antenna,
    channel,
    frequency_mhz,
    power_xx_db,
    power_yy_db
FROM auto_records
WHERE
    import_id = ?
    AND antenna BETWEEN ? AND ?
    AND frequency_mhz BETWEEN ? AND ?
ORDER BY antenna, channel`

	selectFringeFreqBoundsSQL = `
SELECT
    MIN(frequency_mhz),
    MAX(frequency_mhz)
FROM fringe_records
WHERE
    import_id = ?`

	selectAutoFreqBoundsSQL = `
SELECT
    MIN(frequency_mhz),
    MAX(frequency_mhz)
FROM auto_records
WHERE
    import_id = ?`

	selectPacketLossSQL = `
SELECT
    input,
    lost_packets
FROM packet_loss
WHERE
    import_id = ?
ORDER BY input`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_fringe_records_series ON fringe_records (import_id, baseline, channel);
CREATE INDEX IF NOT EXISTS idx_auto_records_series ON auto_records (import_id, antenna, channel);
CREATE INDEX IF NOT EXISTS idx_packet_loss_input ON packet_loss (import_id, input);`
)

//go:embed schema.sql
var initSchemaSQL string
