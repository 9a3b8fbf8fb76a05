package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// NewPostgresStoreFromDSN creates a CockroachDB/Postgres-backed Store. Both
// targets speak the Postgres wire protocol, so lib/pq covers either one.
func NewPostgresStoreFromDSN(dsn string, config *CockroachConfig) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return Store{}, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultCockroachConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return Store{}, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return Store{}, fmt.Errorf("ping database: %w", err)
	}

	return Store{
		Evaluations: &postgresEvaluationStore{db: db},
		closer:      db.Close,
	}, nil
}

type postgresEvaluationStore struct {
	db *sql.DB
}

func (s *postgresEvaluationStore) CreateEvaluation(ctx context.Context, eval *models.Evaluation) error {
	if eval == nil || eval.EvaluationID == "" {
		return fmt.Errorf("evaluation is required")
	}
	cfg, err := json.Marshal(eval.Config)
	if err != nil {
		return fmt.Errorf("marshal evaluation config: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, conversation_id, status, config, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		eval.EvaluationID, eval.ConversationID, string(eval.Status), cfg, eval.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

func (s *postgresEvaluationStore) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, status, config, created_at
		 FROM evaluations WHERE id = $1`, id)

	var eval models.Evaluation
	var status string
	var cfg []byte
	if err := row.Scan(&eval.EvaluationID, &eval.ConversationID, &status, &cfg, &eval.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	eval.Status = models.EvaluationStatus(status)
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &eval.Config); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation config: %w", err)
		}
	}
	return &eval, nil
}

func (s *postgresEvaluationStore) UpdateEvaluationStatus(ctx context.Context, id string, status models.EvaluationStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE evaluations SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update evaluation status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update evaluation status rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresEvaluationStore) ListActiveEvaluations(ctx context.Context) ([]*models.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, status, config, created_at
		 FROM evaluations WHERE status = $1 ORDER BY created_at ASC`,
		string(models.EvaluationRunning))
	if err != nil {
		return nil, fmt.Errorf("list active evaluations: %w", err)
	}
	defer rows.Close()

	var out []*models.Evaluation
	for rows.Next() {
		var eval models.Evaluation
		var status string
		var cfg []byte
		if err := rows.Scan(&eval.EvaluationID, &eval.ConversationID, &status, &cfg, &eval.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		eval.Status = models.EvaluationStatus(status)
		if len(cfg) > 0 {
			if err := json.Unmarshal(cfg, &eval.Config); err != nil {
				return nil, fmt.Errorf("unmarshal evaluation config: %w", err)
			}
		}
		out = append(out, &eval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active evaluations: %w", err)
	}
	return out, nil
}

// CommitTurn writes the cleaned turn, its function calls, and the updated
// customer snapshot inside one transaction, rolling back entirely on any
// failure.
func (s *postgresEvaluationStore) CommitTurn(ctx context.Context, batch BatchWrite) error {
	if batch.EvaluationID == "" || batch.CleanedTurn == nil {
		return fmt.Errorf("evaluation id and cleaned turn are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit turn transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	turn := batch.CleanedTurn
	corrections, err := json.Marshal(turn.Corrections)
	if err != nil {
		return fmt.Errorf("marshal corrections: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cleaned_turns (id, evaluation_id, turn_id, speaker, sequence, raw_text, cleaned_text, confidence_score, cleaning_applied, cleaning_level, ai_model_used, processing_time_ms, corrections, context_detected, token_usage_input, token_usage_output, cost_usd, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		 ON CONFLICT (id) DO NOTHING`,
		turn.ID, batch.EvaluationID, turn.TurnID, string(turn.Speaker), turn.Sequence, turn.RawText, turn.CleanedText,
		string(turn.ConfidenceScore), turn.CleaningApplied, string(turn.CleaningLevel), turn.AIModelUsed, turn.ProcessingTimeMs,
		corrections, turn.ContextDetected, turn.TokenUsage.Input, turn.TokenUsage.Output, turn.CostUSD, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cleaned turn: %w", err)
	}

	for _, fn := range batch.CalledFunctions {
		params, err := json.Marshal(fn.Parameters)
		if err != nil {
			return fmt.Errorf("marshal function parameters: %w", err)
		}
		result, err := json.Marshal(fn.Result)
		if err != nil {
			return fmt.Errorf("marshal function result: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO called_functions (id, evaluation_id, cleaned_turn_id, function_name, parameters, result, executed, error, processing_time_ms, token_usage_input, token_usage_output, cost_usd, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			 ON CONFLICT (id) DO NOTHING`,
			fn.ID, batch.EvaluationID, turn.ID, fn.FunctionName, params, result, fn.Executed, fn.Error,
			fn.ProcessingTimeMs, fn.TokenUsage.Input, fn.TokenUsage.Output, fn.CostUSD, fn.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert called function %s: %w", fn.FunctionName, err)
		}
	}

	if batch.Customer != nil {
		customer, err := json.Marshal(batch.Customer)
		if err != nil {
			return fmt.Errorf("marshal customer snapshot: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO customer_snapshots (evaluation_id, customer, updated_at)
			 VALUES ($1,$2,$3)
			 ON CONFLICT (evaluation_id) DO UPDATE SET customer = EXCLUDED.customer, updated_at = EXCLUDED.updated_at`,
			batch.EvaluationID, customer, batch.Customer.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert customer snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *postgresEvaluationStore) LoadHistory(ctx context.Context, evaluationID string) ([]*models.CleanedTurn, []*models.CalledFunction, *models.MirroredCustomer, error) {
	if _, err := s.GetEvaluation(ctx, evaluationID); err != nil {
		return nil, nil, nil, err
	}

	turnRows, err := s.db.QueryContext(ctx,
		`SELECT id, turn_id, speaker, sequence, raw_text, cleaned_text, confidence_score, cleaning_applied, cleaning_level, ai_model_used, processing_time_ms, corrections, context_detected, token_usage_input, token_usage_output, cost_usd, created_at
		 FROM cleaned_turns WHERE evaluation_id = $1 ORDER BY sequence ASC`, evaluationID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load cleaned turns: %w", err)
	}
	defer turnRows.Close()

	var turns []*models.CleanedTurn
	for turnRows.Next() {
		var t models.CleanedTurn
		var speaker, confidence, level string
		var corrections []byte
		var tokenIn, tokenOut int
		if err := turnRows.Scan(&t.ID, &t.TurnID, &speaker, &t.Sequence, &t.RawText, &t.CleanedText, &confidence,
			&t.CleaningApplied, &level, &t.AIModelUsed, &t.ProcessingTimeMs, &corrections, &t.ContextDetected,
			&tokenIn, &tokenOut, &t.CostUSD, &t.CreatedAt); err != nil {
			return nil, nil, nil, fmt.Errorf("scan cleaned turn: %w", err)
		}
		t.Speaker = models.Speaker(speaker)
		t.ConfidenceScore = models.Confidence(confidence)
		t.CleaningLevel = models.CleaningLevel(level)
		t.EvaluationID = evaluationID
		t.TokenUsage = models.TokenUsage{Input: tokenIn, Output: tokenOut, Total: tokenIn + tokenOut}
		if len(corrections) > 0 {
			if err := json.Unmarshal(corrections, &t.Corrections); err != nil {
				return nil, nil, nil, fmt.Errorf("unmarshal corrections: %w", err)
			}
		}
		turns = append(turns, &t)
	}
	if err := turnRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("load cleaned turns: %w", err)
	}

	fnRows, err := s.db.QueryContext(ctx,
		`SELECT id, cleaned_turn_id, function_name, parameters, result, executed, error, processing_time_ms, token_usage_input, token_usage_output, cost_usd, created_at
		 FROM called_functions WHERE evaluation_id = $1 ORDER BY created_at ASC`, evaluationID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load called functions: %w", err)
	}
	defer fnRows.Close()

	var functions []*models.CalledFunction
	for fnRows.Next() {
		var f models.CalledFunction
		var params, result []byte
		var tokenIn, tokenOut int
		if err := fnRows.Scan(&f.ID, &f.CleanedTurnID, &f.FunctionName, &params, &result, &f.Executed, &f.Error,
			&f.ProcessingTimeMs, &tokenIn, &tokenOut, &f.CostUSD, &f.CreatedAt); err != nil {
			return nil, nil, nil, fmt.Errorf("scan called function: %w", err)
		}
		f.EvaluationID = evaluationID
		f.TokenUsage = models.TokenUsage{Input: tokenIn, Output: tokenOut, Total: tokenIn + tokenOut}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &f.Parameters); err != nil {
				return nil, nil, nil, fmt.Errorf("unmarshal function parameters: %w", err)
			}
		}
		if len(result) > 0 {
			if err := json.Unmarshal(result, &f.Result); err != nil {
				return nil, nil, nil, fmt.Errorf("unmarshal function result: %w", err)
			}
		}
		functions = append(functions, &f)
	}
	if err := fnRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("load called functions: %w", err)
	}

	var customer *models.MirroredCustomer
	var customerJSON []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT customer FROM customer_snapshots WHERE evaluation_id = $1`, evaluationID).Scan(&customerJSON)
	switch {
	case err == sql.ErrNoRows:
		// No snapshot yet: caller falls back to the canonical customer source.
	case err != nil:
		return nil, nil, nil, fmt.Errorf("load customer snapshot: %w", err)
	default:
		customer = &models.MirroredCustomer{}
		if err := json.Unmarshal(customerJSON, customer); err != nil {
			return nil, nil, nil, fmt.Errorf("unmarshal customer snapshot: %w", err)
		}
	}

	return turns, functions, customer, nil
}
