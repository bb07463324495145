// Package viewstore holds the persistent backends of viewset.Store.
//
// Each backend lives in its own subpackage; [Open] picks one by name:
//
//   - [file]: one JSON document per view set in a local directory
//   - [redis]: a hash per view set plus a sorted index, committed with
//     WATCH/MULTI
//   - [mongo]: a collection with a unique name index, committed in a session
//     transaction
//   - [postgres]: a table with a primary key on the name, committed in a SQL
//     transaction
//
// All backends report a duplicate name as viewset.ErrConflict and make a
// transaction's saves visible only on Commit. The "memory" backend is
// viewset.MemoryStore and forgets everything when the process exits.
//
// [file]: github.com/matzehuels/sheetbatch/pkg/infra/viewstore/file
// [redis]: github.com/matzehuels/sheetbatch/pkg/infra/viewstore/redis
// [mongo]: github.com/matzehuels/sheetbatch/pkg/infra/viewstore/mongo
// [postgres]: github.com/matzehuels/sheetbatch/pkg/infra/viewstore/postgres
package viewstore
