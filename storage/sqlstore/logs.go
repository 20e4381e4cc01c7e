package sqlstore

import (
	"context"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

type logRepo struct {
	h handle
}

func (r *logRepo) CreateUserLog(ctx context.Context, l *models.UserLog) error {
	err := r.h.queryRow(ctx,
		`INSERT INTO user_logs (user_id, action, timestamp, ip) VALUES (?, ?, ?, ?) RETURNING id`,
		l.UserID, l.Action, l.Timestamp.UTC(), l.IP,
	).Scan(&l.ID)
	return mapErr(err)
}

func (r *logRepo) UserLogs(ctx context.Context, userID int64, page storage.Page) ([]models.UserLog, error) {
	rows, err := r.h.query(ctx,
		`SELECT id, user_id, action, timestamp, ip FROM user_logs WHERE user_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limitOf(page.Limit), page.Offset,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var logs []models.UserLog
	for rows.Next() {
		var l models.UserLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Timestamp, &l.IP); err != nil {
			return nil, mapErr(err)
		}
		l.Timestamp = l.Timestamp.UTC()
		logs = append(logs, l)
	}
	return logs, mapErr(rows.Err())
}
