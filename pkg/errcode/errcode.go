package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	WriteFileError
	ReadFileError

	// Logging errors
	CreateLogFileError

	// Database errors
	DBConnectionError
	DBNotConnectedError
	DBTableExistsCheckError
	DBTableCheckError
	DBQueryTablesError
	DBScanTableError
	DBDropTableError

	// Schema errors
	SchemaGORMConnectionError
	SchemaCreateError
	SchemaMigrateError
	SchemaNaturalKeyError

	// Import errors
	ImportArchiveOpenError
	ImportNoOccurrenceFileError
	ImportHeaderError
	ImportTruncateError
	ImportCacheLoadError
	ImportFlushError
	ImportInsertError

	// Alert definition errors
	AlertsFileError
	AlertsResolveError
	AlertsSaveError

	// Sync errors
	SyncCleanupError
	SyncAlertListError
	SyncAlertError
	SyncNotifyError
)
