package dbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"chartkit/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoConnector implements Connector for MongoDB.
type mongoConnector struct {
	client *mongo.Client
	dbName string

	mu      sync.Mutex
	cursor  *mongo.Cursor
	columns []string
	fetched int
}

// mongoQuery is the JSON structure users write for MongoDB queries.
// Only find and aggregate are accepted.
type mongoQuery struct {
	Collection string         `json:"collection"`
	Operation  string         `json:"operation,omitempty"` // find (default) | aggregate
	Filter     map[string]any `json:"filter,omitempty"`
	Projection map[string]any `json:"projection,omitempty"`
	Sort       map[string]any `json:"sort,omitempty"`
	Pipeline   []any          `json:"pipeline,omitempty"`
}

func newMongoConnector(conn *domain.DatabaseConnection, password string) (*mongoConnector, error) {
	uri := buildMongoURI(conn, password)
	dbName := conn.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] Connecting to %s (db %s)", logURI, dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("[MONGO] Connect failed: %v", err)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoConnector{client: client, dbName: dbName}, nil
}

// buildMongoURI accepts either a full connection string in Host, with an
// optional <password> placeholder, or discrete host/port/user fields.
func buildMongoURI(conn *domain.DatabaseConnection, password string) string {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri := conn.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}

	port := conn.Port
	if port == 0 {
		port = 27017
	}
	var uri string
	if conn.Username != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, password, conn.Host, port)
	} else {
		uri = fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
	}

	if len(conn.Extra) > 0 {
		keys := make([]string, 0, len(conn.Extra))
		for k := range conn.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		params := make([]string, len(keys))
		for i, k := range keys {
			params[i] = k + "=" + conn.Extra[k]
		}
		uri += "/?" + strings.Join(params, "&")
	}
	return uri
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return "test"
	}
	path := rest[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	if path == "" {
		return "test"
	}
	return path
}

// unmarshalEJSON converts MongoDB Extended JSON types ($oid, $date,
// $numberLong) inside a decoded query field to BSON values.
func unmarshalEJSON(field map[string]any) map[string]any {
	if field == nil {
		return nil
	}
	raw, err := json.Marshal(field)
	if err != nil {
		return field
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		log.Printf("[MONGO] EJSON parse warning: %v", err)
		return field
	}
	result := make(map[string]any, len(doc))
	for _, elem := range doc {
		result[elem.Key] = elem.Value
	}
	return result
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) Query(ctx context.Context, query string, fetchSize int) (*QueryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCursorLocked(ctx)

	if fetchSize <= 0 {
		fetchSize = 500
	}

	var mq mongoQuery
	if err := json.Unmarshal([]byte(query), &mq); err != nil {
		return nil, fmt.Errorf("invalid query JSON: %w", err)
	}
	mq.Filter = unmarshalEJSON(mq.Filter)
	mq.Projection = unmarshalEJSON(mq.Projection)
	mq.Sort = unmarshalEJSON(mq.Sort)

	if mq.Collection == "" {
		return nil, fmt.Errorf("query must specify 'collection'")
	}
	coll := m.client.Database(m.dbName).Collection(mq.Collection)

	var (
		cursor *mongo.Cursor
		err    error
	)
	switch mq.Operation {
	case "", "find":
		opts := options.Find().SetBatchSize(int32(fetchSize))
		if mq.Projection != nil {
			opts.SetProjection(mq.Projection)
		}
		if mq.Sort != nil {
			opts.SetSort(mq.Sort)
		}
		filter := mq.Filter
		if filter == nil {
			filter = map[string]any{}
		}
		cursor, err = coll.Find(ctx, filter, opts)
	case "aggregate":
		pipeline := mq.Pipeline
		if pipeline == nil {
			pipeline = []any{}
		}
		cursor, err = coll.Aggregate(ctx, pipeline)
	default:
		return nil, fmt.Errorf("unsupported operation %q: only find and aggregate can feed a chart", mq.Operation)
	}
	if err != nil {
		log.Printf("[MONGO] %s error: %v", mq.Collection, err)
		return nil, fmt.Errorf("%s: %w", mq.Collection, err)
	}

	m.cursor = cursor
	m.columns = nil
	m.fetched = 0
	return m.fetchBatchLocked(ctx, fetchSize)
}

func (m *mongoConnector) FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor == nil {
		return nil, fmt.Errorf("no active cursor, run a query first")
	}
	if fetchSize <= 0 {
		fetchSize = 500
	}
	return m.fetchBatchLocked(ctx, fetchSize)
}

// fetchBatchLocked decodes up to fetchSize documents. Columns are fixed by
// the first batch (in document order) so later pages line up with it.
func (m *mongoConnector) fetchBatchLocked(ctx context.Context, fetchSize int) (*QueryPage, error) {
	var docs []bson.D
	for i := 0; i < fetchSize; i++ {
		if !m.cursor.Next(ctx) {
			break
		}
		var doc bson.D
		if err := m.cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := m.cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	if m.columns == nil {
		seen := map[string]bool{}
		for _, doc := range docs {
			for _, elem := range doc {
				if !seen[elem.Key] {
					seen[elem.Key] = true
					m.columns = append(m.columns, elem.Key)
				}
			}
		}
	}

	rows := make([][]any, 0, len(docs))
	for _, doc := range docs {
		row := make([]any, len(m.columns))
		for _, elem := range doc {
			for j, col := range m.columns {
				if col == elem.Key {
					row[j] = bsonScalar(elem.Value)
					break
				}
			}
		}
		rows = append(rows, row)
	}

	m.fetched += len(docs)
	log.Printf("[MONGO] Fetched %d docs (total: %d)", len(docs), m.fetched)

	hasMore := len(docs) == fetchSize
	columns := m.columns
	if !hasMore {
		m.closeCursorLocked(ctx)
	}

	return &QueryPage{
		Columns:      columns,
		Rows:         rows,
		TotalFetched: m.fetched,
		HasMore:      hasMore,
	}, nil
}

// bsonScalar maps BSON values to the scalar shapes the datasource parser
// understands.
func bsonScalar(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64, int32, int64:
		return val
	case bson.DateTime:
		return val.Time().UTC()
	case bson.ObjectID:
		return val.Hex()
	case bson.Decimal128:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (m *mongoConnector) Close() error {
	m.mu.Lock()
	m.closeCursorLocked(context.Background())
	m.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *mongoConnector) closeCursorLocked(ctx context.Context) {
	if m.cursor != nil {
		m.cursor.Close(ctx)
		m.cursor = nil
	}
}
