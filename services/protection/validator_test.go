package protection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	"github.com/dolthub/go-mysql-server/server"
	"github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagovapi/config"
	"datagovapi/models"
)

func colFixture() *models.CatalogColumn {
	return &models.CatalogColumn{
		ID:           1,
		DataSourceID: 1,
		AssetID:      1,
		Table:        "credentials",
		Name:         "password_hash",
	}
}

func validatorTestConfig() {
	config.Cfg.LiveSampleSize = 10
	config.Cfg.SourceConnectTimeout = 2 * time.Second
	config.Cfg.SourceQueryTimeout = 5 * time.Second
	config.Cfg.EntropyThreshold = 4.5
	config.Cfg.ProtectedFraction = 0.9
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startFakeSource runs an in-memory MySQL server holding a govtest database
// with a credentials table: bcrypt password hashes next to cleartext emails.
func startFakeSource(t *testing.T) (int, func()) {
	t.Helper()

	port := freePort(t)
	db := memory.NewDatabase("govtest")
	provider := memory.NewDBProvider(db)
	engine := sqle.NewDefault(provider)

	schema := sql.NewPrimaryKeySchema(sql.Schema{
		{Name: "id", Type: types.Text, Source: "credentials", Nullable: false, PrimaryKey: true},
		{Name: "password_hash", Type: types.Text, Source: "credentials"},
		{Name: "email", Type: types.Text, Source: "credentials"},
	})
	table := memory.NewTable(db, "credentials", schema, db.GetForeignKeyCollection())
	db.AddTable("credentials", table)

	session := memory.NewSession(sql.NewBaseSession(), provider)
	sqlCtx := sql.NewContext(context.Background(), sql.WithSession(session))
	sqlCtx.SetCurrentDatabase("govtest")

	bcrypt := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	for i := 1; i <= 5; i++ {
		insert := fmt.Sprintf("INSERT INTO credentials VALUES ('%d', '%s', 'user%d@example.com')", i, bcrypt, i)
		_, iter, _, err := engine.Query(sqlCtx, insert)
		require.NoError(t, err)
		// Drain the iterator: the insert only executes (and commits) once the
		// row iterator is consumed.
		_, err = sql.RowIterToRows(sqlCtx, iter)
		require.NoError(t, err)
	}

	srv, err := server.NewServer(server.Config{
		Protocol: "tcp",
		Address:  fmt.Sprintf("localhost:%d", port),
	}, engine, sql.NewContext, memory.NewSessionBuilder(provider), nil)
	require.NoError(t, err)

	go func() {
		_ = srv.Start()
	}()

	// Poll readiness so the test never races the listener.
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("fake source did not start: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	return port, func() { _ = srv.Close() }
}

func sourceFixture(port int) (*models.DataSource, *models.CatalogAsset) {
	ds := &models.DataSource{
		ID:         1,
		Name:       "fixture",
		SourceType: "mysql",
		Host:       "localhost",
		Port:       port,
		Username:   "root",
		Password:   "",
	}
	asset := &models.CatalogAsset{ID: 1, DataSourceID: 1, DatabaseName: "govtest"}
	return ds, asset
}

func TestValidate_HashedColumnIsProtected(t *testing.T) {
	validatorTestConfig()
	port, stop := startFakeSource(t)
	defer stop()

	ds, asset := sourceFixture(port)
	v := NewValidator()

	res, err := v.Validate(context.Background(), ds, asset, colFixture())
	require.NoError(t, err)
	assert.Equal(t, models.ProtectionProtected, res.Status)
	assert.True(t, res.IsProtected)
	assert.Equal(t, MethodCiphertext, res.Method)
	assert.Equal(t, 5, res.SampleSize)
}

func TestValidate_CleartextColumnIsUnprotected(t *testing.T) {
	validatorTestConfig()
	port, stop := startFakeSource(t)
	defer stop()

	ds, asset := sourceFixture(port)
	col := colFixture()
	col.Name = "email"

	res, err := NewValidator().Validate(context.Background(), ds, asset, col)
	require.NoError(t, err)
	assert.Equal(t, models.ProtectionUnprotected, res.Status)
	assert.False(t, res.IsProtected)
}

func TestValidate_UnreachableSourceIsUnknown(t *testing.T) {
	validatorTestConfig()
	config.Cfg.SourceConnectTimeout = 500 * time.Millisecond

	ds, asset := sourceFixture(freePort(t))
	res, err := NewValidator().Validate(context.Background(), ds, asset, colFixture())

	// An unreachable source is never evidence of protection.
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	require.NotNil(t, res)
	assert.Equal(t, models.ProtectionUnknown, res.Status)
	assert.False(t, res.IsProtected)
}
