// Package xmlstore persists the fact store, change log and user list as XML
// documents in a data directory.
//
// The documents keep the element layout of earlier deployments so existing
// data files load unchanged:
//
//	data.xml     <data><schema>...</schema><facts>...</facts></data>
//	history.xml  <modifications><modification action="...">...</modification></modifications>
//	users.xml    <users><user role="...">...</user></users>
//
// Every write rewrites the whole document through a temp file, fsync and
// rename, so readers never observe a partial document.
package xmlstore

import "path/filepath"

// File names inside a data directory.
const (
	DataFileName    = "data.xml"
	HistoryFileName = "history.xml"
	UsersFileName   = "users.xml"
)

// DataPath returns the data document path inside dir.
func DataPath(dir string) string { return filepath.Join(dir, DataFileName) }

// HistoryPath returns the history document path inside dir.
func HistoryPath(dir string) string { return filepath.Join(dir, HistoryFileName) }

// UsersPath returns the users document path inside dir.
func UsersPath(dir string) string { return filepath.Join(dir, UsersFileName) }
