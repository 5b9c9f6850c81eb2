// Package http implements the HTTP handlers of the gridpulse web service.
// Handlers stay thin: they parse and validate the request, call the dataset
// or health service and render the result.
//
// # Routes
//
//	GET    /api/v1/datasets                    list stored datasets
//	POST   /api/v1/datasets                    upload a report (multipart "file" or raw body)
//	POST   /api/v1/datasets/reload             re-read the configured default source
//	GET    /api/v1/datasets/source             stat the default source
//	GET    /api/v1/datasets/{id}               metadata and validation summary
//	DELETE /api/v1/datasets/{id}               drop a dataset
//	GET    /api/v1/datasets/{id}/range         declared and present date span
//	GET    /api/v1/datasets/{id}/options       selectable years, months and quarters
//	GET    /api/v1/datasets/{id}/chart         filtered chart model
//	GET    /api/v1/datasets/{id}/stats         per-metric statistics
//	GET    /api/v1/datasets/{id}/validation    anomaly reports
//	GET    /api/v1/datasets/{id}/export        UTF-8 CSV or xlsx download
//
// Window selection uses the query parameters granularity (day, month,
// quarter, year, custom), start and end (YYYY-MM-DD). Metrics are given as
// repeated or comma-separated metrics parameters.
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/ingest/empty-dataset",
//	    "title": "No Valid Rows",
//	    "status": 422,
//	    "detail": "no valid rows after parsing (total 1, valid 0, skipped 1)",
//	    "instance": "/api/v1/datasets"
//	}
package http
