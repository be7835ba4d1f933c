// Package tr передаёт открытую транзакцию pgx от use case к репозиториям через context.
package tr

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mediaplan/forecast-service/pkg/e"
)

type txKey struct{}

// WithTx кладёт транзакцию в контекст.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromCtx извлекает транзакцию, положенную WithTx.
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok || tx == nil {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}
