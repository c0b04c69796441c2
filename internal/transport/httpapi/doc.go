// Package httpapi carries the row transport over HTTP.
//
// # Overview
//
// Client implements rows.Transport against a JSON API; NewHandler serves the
// same API from any rows.Transport, so a grid can read from a remote process
// exactly as it reads from a local source.
//
// # API Endpoints
//
//   - GET /api/stores/{id}/count returns {"count": N}
//   - GET /api/stores/{id}/rows?first=F&last=L[&sort=C&dir=asc|desc] returns
//     {"rows": [...]} with the inclusive range [F, L]
//   - GET /api/stores/{id}/columns returns {"columns": [{"name", "kind"}]}
//     when the source can describe its schema
//   - GET /api/health returns {"ok": true}
//
// Row records use the JSON form of rows.RowRecord. Cell maps are keyed by the
// decimal column index.
//
// # Client Usage
//
//	client, err := httpapi.NewClient("127.0.0.1:7490")
//	if err != nil {
//		return err
//	}
//	n, err := client.RowCount(ctx, "orders")
//
// Requests time out after five seconds. Non-2xx answers are returned as
// *StatusError; the grid's row cache wraps them in a rows.TransportError.
// Sources answering rows.ErrUnknownStore are served as 404.
package httpapi
