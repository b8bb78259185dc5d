package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/syahiidkamil/mcp-postgres-full-access/internal/infrastructure/logging"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/schema"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/txmanager"
)

const serverInstructions = `Postgres access with managed write transactions.

Use execute_query for read-only SQL. Writes go through
execute_dml_ddl_dcl_tcl, which holds the transaction open and returns a
transaction id; confirm with execute_commit or discard with execute_rollback
before the reported timeout, or the change is rolled back automatically.`

// Server wires the transaction manager and schema inspector into an MCP
// stdio server.
type Server struct {
	mcp       *server.MCPServer
	manager   *txmanager.Manager
	inspector *schema.Inspector
	logger    *logging.Logger
}

// New creates the MCP server and registers all tools.
func New(manager *txmanager.Manager, inspector *schema.Inspector, logger *logging.Logger, version string) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"mcp-postgres-full-access",
			version,
			server.WithToolCapabilities(false),
			server.WithInstructions(serverInstructions),
		),
		manager:   manager,
		inspector: inspector,
		logger:    logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query (SELECT, WITH, EXPLAIN, SHOW). Runs in an isolated read-only transaction."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The read-only SQL statement to execute")),
	), s.handleExecuteQuery)

	s.mcp.AddTool(mcp.NewTool("execute_dml_ddl_dcl_tcl",
		mcp.WithDescription("Execute a write statement (INSERT, UPDATE, DELETE, DDL). The transaction is held open and must be resolved with execute_commit or execute_rollback before the returned timeout."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL statement to execute")),
	), s.handleExecuteWrite)

	s.mcp.AddTool(mcp.NewTool("execute_commit",
		mcp.WithDescription("Commit a held transaction by id, making its changes permanent."),
		mcp.WithString("transaction_id", mcp.Required(), mcp.Description("Transaction id returned by execute_dml_ddl_dcl_tcl")),
	), s.handleCommit)

	s.mcp.AddTool(mcp.NewTool("execute_rollback",
		mcp.WithDescription("Roll back a held transaction by id, discarding its changes."),
		mcp.WithString("transaction_id", mcp.Required(), mcp.Description("Transaction id returned by execute_dml_ddl_dcl_tcl")),
	), s.handleRollback)

	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List all tables in a schema with column counts and comments."),
		mcp.WithString("schema", mcp.Description("Schema name (default public)")),
	), s.handleListTables)

	s.mcp.AddTool(mcp.NewTool("describe_table",
		mcp.WithDescription("Describe a table: columns, primary keys, foreign keys, indexes, and approximate row count."),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
		mcp.WithString("schema", mcp.Description("Schema name (default public)")),
	), s.handleDescribeTable)
}

// Serve runs the stdio transport until the client disconnects.
func (s *Server) Serve() error {
	s.logger.Info("mcp server listening on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleExecuteQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := req.RequireString("sql")
	if err != nil {
		return invalidInput(err), nil
	}

	result, err := s.manager.ReadQuery(ctx, sql)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"rows":       result.Rows,
		"rowCount":   result.RowCount,
		"fields":     result.Fields,
		"durationMs": result.ElapsedMS,
	}), nil
}

func (s *Server) handleExecuteWrite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := req.RequireString("sql")
	if err != nil {
		return invalidInput(err), nil
	}

	result, err := s.manager.Execute(ctx, sql)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"transactionId": result.TransactionID,
		"command":       result.Command,
		"rowCount":      result.RowCount,
		"durationMs":    result.ElapsedMS,
		"timeoutMs":     result.TimeoutMS,
		"message": fmt.Sprintf(
			"Transaction held open. Commit or roll back with this id within %d ms or it is rolled back automatically.",
			result.TimeoutMS),
	}), nil
}

func (s *Server) handleCommit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("transaction_id")
	if err != nil {
		return invalidInput(err), nil
	}

	if err := s.manager.Commit(ctx, id); err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"transactionId": id,
		"status":        "committed",
	}), nil
}

func (s *Server) handleRollback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("transaction_id")
	if err != nil {
		return invalidInput(err), nil
	}

	if err := s.manager.Rollback(ctx, id); err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"transactionId": id,
		"status":        "rolled_back",
	}), nil
}

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schemaName := req.GetString("schema", "public")

	tables, err := s.inspector.ListTables(ctx, schemaName)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"schema": schemaName,
		"tables": tables,
		"count":  len(tables),
	}), nil
}

func (s *Server) handleDescribeTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table")
	if err != nil {
		return invalidInput(err), nil
	}
	schemaName := req.GetString("schema", "public")

	detail, err := s.inspector.DescribeTable(ctx, table, schemaName)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"table": detail,
	}), nil
}

// success wraps a payload as {"success": true, ...} JSON text.
func success(payload map[string]any) *mcp.CallToolResult {
	payload["success"] = true
	return jsonResult(payload)
}

// failure wraps a domain error as {"success": false, "error": ..., "code": ...}.
func failure(err error) *mcp.CallToolResult {
	return jsonResult(map[string]any{
		"success": false,
		"error":   err.Error(),
		"code":    errorCode(err),
	})
}

func invalidInput(err error) *mcp.CallToolResult {
	return jsonResult(map[string]any{
		"success": false,
		"error":   err.Error(),
		"code":    codeInvalidInput,
	})
}

func jsonResult(payload map[string]any) *mcp.CallToolResult {
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}
