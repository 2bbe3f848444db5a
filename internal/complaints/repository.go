package complaints

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/departments"
	"grievance-intake/internal/intake"
)

const (
	departmentCacheTTL = time.Hour
	ticketCacheTTL     = 5 * time.Minute
)

// Repository persists complaints in PostgreSQL with a Redis read-through
// cache for ticket lookups and the department name-to-id mapping.
type Repository struct {
	db     *sql.DB
	cache  *redis.Client
	logger logger.Logger
}

func NewRepository(db *sql.DB, cache *redis.Client, log logger.Logger) *Repository {
	return &Repository{
		db:     db,
		cache:  cache,
		logger: log.With(map[string]interface{}{"component": "complaints-repository"}),
	}
}

// InitSchema creates the tables if missing and seeds the fixed department
// set. Safe to run on every startup.
func (r *Repository) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(120) NOT NULL UNIQUE,
			phone VARCHAR(20)
		)`,
		`CREATE TABLE IF NOT EXISTS departments (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS complaints (
			id SERIAL PRIMARY KEY,
			ticket_number VARCHAR(20) NOT NULL UNIQUE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			department_id INTEGER NOT NULL REFERENCES departments(id),
			description TEXT NOT NULL,
			address TEXT,
			image_path TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'Pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return stderrors.NewDatabaseConnectionFailedError(err)
		}
	}

	for _, name := range departments.All {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO departments (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return stderrors.NewDatabaseConnectionFailedError(err)
		}
	}
	return nil
}

// Create stores an accepted submission: the submitter is upserted by email,
// the department resolved to its id and the complaint row inserted.
func (r *Repository) Create(ctx context.Context, sub intake.Submission, v intake.ValidatedIntake) (Complaint, error) {
	userID, err := r.ensureUser(ctx, sub)
	if err != nil {
		return Complaint{}, err
	}

	deptID, err := r.departmentID(ctx, v.DepartmentName)
	if err != nil {
		return Complaint{}, err
	}

	var (
		id        int64
		createdAt time.Time
	)
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO complaints (ticket_number, user_id, department_id, description, address, image_path, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		v.TicketNumber, userID, deptID, v.Description, v.FinalAddress, v.ImageStoredPath, StatusPending,
	).Scan(&id, &createdAt)
	if err != nil {
		return Complaint{}, stderrors.NewComplaintInsertFailedError(err)
	}

	r.logger.Info("complaint persisted", map[string]interface{}{
		"ticket":     v.TicketNumber,
		"department": v.DepartmentName,
	})

	return Complaint{
		ID:             id,
		TicketNumber:   v.TicketNumber,
		UserName:       sub.Name,
		UserEmail:      sub.Email,
		UserPhone:      sub.Phone,
		Description:    v.Description,
		Address:        v.FinalAddress,
		DepartmentName: v.DepartmentName,
		Status:         StatusPending,
		ImagePath:      v.ImageStoredPath,
		CreatedAt:      createdAt,
	}, nil
}

func (r *Repository) ensureUser(ctx context.Context, sub intake.Submission) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, phone) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone
		 RETURNING id`,
		sub.Name, sub.Email, sub.Phone,
	).Scan(&id)
	if err != nil {
		return 0, stderrors.NewComplaintInsertFailedError(err)
	}
	return id, nil
}

func (r *Repository) departmentID(ctx context.Context, name string) (int64, error) {
	cacheKey := "dept:" + name
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey).Result(); err == nil {
			if id, convErr := strconv.ParseInt(cached, 10, 64); convErr == nil {
				return id, nil
			}
		}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM departments WHERE name = $1`, name).Scan(&id)
	if err != nil {
		return 0, stderrors.NewComplaintInsertFailedError(fmt.Errorf("department %q: %w", name, err))
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, strconv.FormatInt(id, 10), departmentCacheTTL).Err(); err != nil {
			r.logger.WithError(err).Warn("department cache write failed", nil)
		}
	}
	return id, nil
}

const complaintColumns = `c.id, c.ticket_number, u.name, u.email, u.phone,
	c.description, c.address, d.name, c.status, COALESCE(c.image_path, ''), c.created_at`

const complaintJoins = `FROM complaints c
	JOIN users u ON u.id = c.user_id
	JOIN departments d ON d.id = c.department_id`

func scanComplaint(row interface{ Scan(...interface{}) error }) (Complaint, error) {
	var c Complaint
	err := row.Scan(
		&c.ID, &c.TicketNumber, &c.UserName, &c.UserEmail, &c.UserPhone,
		&c.Description, &c.Address, &c.DepartmentName, &c.Status, &c.ImagePath, &c.CreatedAt,
	)
	return c, err
}

// TrackByTicket returns the complaint for a citizen-facing ticket number,
// serving repeat lookups from cache.
func (r *Repository) TrackByTicket(ctx context.Context, ticket string) (Complaint, error) {
	cacheKey := "ticket:" + ticket
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey).Result(); err == nil {
			var c Complaint
			if json.Unmarshal([]byte(cached), &c) == nil {
				return c, nil
			}
		}
	}

	c, err := scanComplaint(r.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` `+complaintJoins+` WHERE c.ticket_number = $1`, ticket))
	if err == sql.ErrNoRows {
		return Complaint{}, stderrors.NewTicketNotFoundError(ticket)
	}
	if err != nil {
		return Complaint{}, stderrors.NewDatabaseConnectionFailedError(err)
	}

	if r.cache != nil {
		if payload, err := json.Marshal(c); err == nil {
			if err := r.cache.Set(ctx, cacheKey, payload, ticketCacheTTL).Err(); err != nil {
				r.logger.WithError(err).Warn("ticket cache write failed", nil)
			}
		}
	}
	return c, nil
}

// List returns complaints matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Complaint, error) {
	query := `SELECT ` + complaintColumns + ` ` + complaintJoins + ` WHERE 1=1`
	args := []interface{}{}

	if f.Department != "" {
		args = append(args, f.Department)
		query += fmt.Sprintf(" AND d.name = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND c.status = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (c.ticket_number ILIKE $%d OR u.name ILIKE $%d OR c.description ILIKE $%d)", n, n, n)
	}
	query += " ORDER BY c.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, stderrors.NewDatabaseConnectionFailedError(err)
	}
	defer rows.Close()

	var out []Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, stderrors.NewDatabaseConnectionFailedError(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewDatabaseConnectionFailedError(err)
	}
	return out, nil
}

// UpdateStatus moves a complaint to a new status and returns the refreshed
// record so the caller can notify the submitter. The ticket cache entry is
// invalidated.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string) (Complaint, error) {
	if !ValidStatus(status) {
		return Complaint{}, stderrors.NewInvalidStatusError(status)
	}

	var ticket string
	err := r.db.QueryRowContext(ctx,
		`UPDATE complaints SET status = $1 WHERE id = $2 RETURNING ticket_number`, status, id).Scan(&ticket)
	if err == sql.ErrNoRows {
		return Complaint{}, stderrors.NewTicketNotFoundError(fmt.Sprintf("id %d", id))
	}
	if err != nil {
		return Complaint{}, stderrors.NewDatabaseConnectionFailedError(err)
	}

	if r.cache != nil {
		if err := r.cache.Del(ctx, "ticket:"+ticket).Err(); err != nil {
			r.logger.WithError(err).Warn("ticket cache invalidation failed", nil)
		}
	}

	c, err := scanComplaint(r.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` `+complaintJoins+` WHERE c.id = $1`, id))
	if err != nil {
		return Complaint{}, stderrors.NewDatabaseConnectionFailedError(err)
	}

	r.logger.Info("complaint status updated", map[string]interface{}{
		"ticket": c.TicketNumber,
		"status": status,
	})
	return c, nil
}

// Reports aggregates complaint counts by status and department.
func (r *Repository) Reports(ctx context.Context) (Report, error) {
	report := Report{
		ByStatus:     make(map[string]int),
		ByDepartment: make(map[string]int),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM complaints GROUP BY status`)
	if err != nil {
		return Report{}, stderrors.NewDatabaseConnectionFailedError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Report{}, stderrors.NewDatabaseConnectionFailedError(err)
		}
		report.ByStatus[status] = count
		report.Total += count
	}
	if err := rows.Err(); err != nil {
		return Report{}, stderrors.NewDatabaseConnectionFailedError(err)
	}

	deptRows, err := r.db.QueryContext(ctx,
		`SELECT d.name, COUNT(c.id)
		 FROM departments d
		 LEFT JOIN complaints c ON c.department_id = d.id
		 GROUP BY d.name`)
	if err != nil {
		return Report{}, stderrors.NewDatabaseConnectionFailedError(err)
	}
	defer deptRows.Close()
	for deptRows.Next() {
		var name string
		var count int
		if err := deptRows.Scan(&name, &count); err != nil {
			return Report{}, stderrors.NewDatabaseConnectionFailedError(err)
		}
		report.ByDepartment[name] = count
	}
	if err := deptRows.Err(); err != nil {
		return Report{}, stderrors.NewDatabaseConnectionFailedError(err)
	}

	return report, nil
}
