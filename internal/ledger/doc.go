// Package ledger persists the mapping from local file paths to uploaded
// knowledge-base resources.
//
// Each tracked file has one record: the SHA-256 fingerprint of the content
// last submitted and, once ingestion completed, the remote resource ID. The
// uploader consults the ledger to skip files whose content has not changed
// since the last confirmed upload.
//
// # Usage
//
//	led, err := ledger.Open("~/.kbridge/ledger.db")
//	if err != nil {
//	    return err
//	}
//	defer led.Close()
//
//	rec, err := led.Lookup(ctx, "/docs/guide.pdf")
//	switch {
//	case errors.Is(err, ledger.ErrNotFound):
//	    // never uploaded
//	case rec.Fingerprint == fp && rec.RemoteID != "":
//	    // unchanged and confirmed, skip
//	}
//
// # Write protocol
//
// RecordFingerprint is called right after a file is submitted; it upserts
// the fingerprint and clears any confirmed remote ID when the content
// changed. ConfirmRemoteID is called only after the remote job succeeded
// and is guarded by the fingerprint, so a completion racing a newer
// submission of the same path cannot mark stale content as confirmed.
//
// # Storage
//
// The ledger is a single SQLite database in WAL mode with one write
// connection. Two drivers are supported via build tags: the default pure
// Go driver (modernc.org/sqlite) and a CGO driver (mattn/go-sqlite3) when
// built with -tags sqlite_cgo. Schema changes ship as ordered, semver
// tagged migrations applied on Open.
package ledger
