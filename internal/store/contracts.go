package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/model"
)

// SaveContractsPage commits one page of contracts and advances the
// contracts cursor in a single transaction. New contracts are inserted,
// non-terminal ones updated in place, and contracts already in a terminal
// status are skipped: upstream can no longer change them, and skipping
// keeps the locally stored appraisal and history stable.
func (s *Store) SaveContractsPage(ctx context.Context, contracts []model.Contract, cursor int64) (Counts, error) {
	var counts Counts
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range contracts {
			var status string
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM contracts WHERE contract_id = ?`, c.ContractID).Scan(&status)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if err := insertContract(ctx, tx, c); err != nil {
					return err
				}
				counts.Inserted++
			case err != nil:
				return fmt.Errorf("checking contract %d: %w", c.ContractID, err)
			case model.ContractStatus(status).Terminal():
				counts.Skipped++
			default:
				if err := updateContract(ctx, tx, c); err != nil {
					return err
				}
				counts.Updated++
			}
		}
		return advanceCursor(ctx, tx, DomainContracts, cursor)
	})
	return counts, err
}

func insertContract(ctx context.Context, tx *sql.Tx, c model.Contract) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contracts (
			contract_id, issuer_id, issuer_corporation_id, assignee_id, acceptor_id,
			type, status, title, for_corporation, availability,
			date_issued, date_expired, date_accepted, date_completed,
			price, reward, collateral, volume,
			start_location_id, end_location_id, raw_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ContractID, c.IssuerID, c.IssuerCorpID, c.AssigneeID, c.AcceptorID,
		c.Type, string(c.Status), c.Title, boolToDB(c.ForCorporation), c.Availability,
		timeToDB(c.DateIssued), timeToDB(c.DateExpired), timeToDB(c.DateAccepted), timeToDB(c.DateCompleted),
		c.Price.String(), c.Reward.String(), c.Collateral.String(), c.Volume.String(),
		c.StartLocation, c.EndLocation, string(c.Raw))
	if err != nil {
		return fmt.Errorf("inserting contract %d: %w", c.ContractID, err)
	}
	return nil
}

// updateContract rewrites everything ESI owns; the appraisal column is
// local state and deliberately left alone.
func updateContract(ctx context.Context, tx *sql.Tx, c model.Contract) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE contracts SET
			issuer_id = ?, issuer_corporation_id = ?, assignee_id = ?, acceptor_id = ?,
			type = ?, status = ?, title = ?, for_corporation = ?, availability = ?,
			date_issued = ?, date_expired = ?, date_accepted = ?, date_completed = ?,
			price = ?, reward = ?, collateral = ?, volume = ?,
			start_location_id = ?, end_location_id = ?, raw_json = ?
		WHERE contract_id = ?`,
		c.IssuerID, c.IssuerCorpID, c.AssigneeID, c.AcceptorID,
		c.Type, string(c.Status), c.Title, boolToDB(c.ForCorporation), c.Availability,
		timeToDB(c.DateIssued), timeToDB(c.DateExpired), timeToDB(c.DateAccepted), timeToDB(c.DateCompleted),
		c.Price.String(), c.Reward.String(), c.Collateral.String(), c.Volume.String(),
		c.StartLocation, c.EndLocation, string(c.Raw),
		c.ContractID)
	if err != nil {
		return fmt.Errorf("updating contract %d: %w", c.ContractID, err)
	}
	return nil
}

// SaveContractItems stores a contract's item manifest. Manifests are
// append-only; rows already present are left untouched. Returns how many
// new rows were added.
func (s *Store) SaveContractItems(ctx context.Context, contractID int64, items []model.ContractItem) (int, error) {
	added := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, it := range items {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO contract_items (
					contract_id, record_id, type_id, quantity, raw_quantity,
					is_included, is_singleton, raw_json
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(contract_id, record_id) DO NOTHING`,
				contractID, it.RecordID, it.TypeID, it.Quantity, it.RawQuantity,
				boolToDB(it.IsIncluded), boolToDB(it.IsSingleton), string(it.Raw))
			if err != nil {
				return fmt.Errorf("inserting item %d of contract %d: %w", it.RecordID, contractID, err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				added++
			}
		}
		return nil
	})
	return added, err
}

// ContractByID returns one contract, or nil when it is not stored.
func (s *Store) ContractByID(ctx context.Context, contractID int64) (*model.Contract, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contractColumns+`
		FROM contracts WHERE contract_id = ?`, contractID)
	c, err := scanContract(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading contract %d: %w", contractID, err)
	}
	return &c, nil
}

// ListContracts returns the most recently issued contracts.
func (s *Store) ListContracts(ctx context.Context, limit int) ([]model.Contract, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		ORDER BY date_issued DESC, contract_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

// FinishedAppraisedContracts returns contracts in the finished status that
// carry an appraisal value, oldest first. These are the inputs to the
// contract donation and subsidy flow rules.
func (s *Store) FinishedAppraisedContracts(ctx context.Context) ([]model.Contract, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE status = ? AND appraisal IS NOT NULL
		ORDER BY date_issued ASC, contract_id ASC`,
		string(model.ContractFinished))
	if err != nil {
		return nil, fmt.Errorf("querying finished appraised contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

// SetContractAppraisal stores the appraised value of a contract's items.
func (s *Store) SetContractAppraisal(ctx context.Context, contractID int64, value decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contracts SET appraisal = ? WHERE contract_id = ?`,
		value.String(), contractID)
	if err != nil {
		return fmt.Errorf("storing appraisal for contract %d: %w", contractID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("storing appraisal: contract %d not found", contractID)
	}
	return nil
}

// ContractItems returns a contract's stored item manifest.
func (s *Store) ContractItems(ctx context.Context, contractID int64) ([]model.ContractItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contract_id, record_id, type_id, quantity, raw_quantity,
		       is_included, is_singleton, raw_json
		FROM contract_items
		WHERE contract_id = ?
		ORDER BY record_id ASC`, contractID)
	if err != nil {
		return nil, fmt.Errorf("listing items of contract %d: %w", contractID, err)
	}
	defer rows.Close()

	var out []model.ContractItem
	for rows.Next() {
		var it model.ContractItem
		var included, singleton int
		var raw string
		if err := rows.Scan(&it.ContractID, &it.RecordID, &it.TypeID, &it.Quantity,
			&it.RawQuantity, &included, &singleton, &raw); err != nil {
			return nil, fmt.Errorf("scanning contract item: %w", err)
		}
		it.IsIncluded = included != 0
		it.IsSingleton = singleton != 0
		it.Raw = []byte(raw)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contract items: %w", err)
	}
	return out, nil
}

const contractColumns = `contract_id, issuer_id, issuer_corporation_id, assignee_id, acceptor_id,
	type, status, title, for_corporation, availability,
	date_issued, date_expired, date_accepted, date_completed,
	price, reward, collateral, volume,
	start_location_id, end_location_id, appraisal, raw_json`

func scanContract(scan func(...any) error) (model.Contract, error) {
	var c model.Contract
	var status, raw string
	var forCorp int
	var issued, expired, accepted, completed string
	var price, reward, collateral, volume string
	var appraisal sql.NullString
	err := scan(&c.ContractID, &c.IssuerID, &c.IssuerCorpID, &c.AssigneeID, &c.AcceptorID,
		&c.Type, &status, &c.Title, &forCorp, &c.Availability,
		&issued, &expired, &accepted, &completed,
		&price, &reward, &collateral, &volume,
		&c.StartLocation, &c.EndLocation, &appraisal, &raw)
	if err != nil {
		return model.Contract{}, err
	}
	c.Status = model.ContractStatus(status)
	c.ForCorporation = forCorp != 0
	c.DateIssued = timeFromDB(issued)
	c.DateExpired = timeFromDB(expired)
	c.DateAccepted = timeFromDB(accepted)
	c.DateCompleted = timeFromDB(completed)
	c.Price = decFromDB(price)
	c.Reward = decFromDB(reward)
	c.Collateral = decFromDB(collateral)
	c.Volume = decFromDB(volume)
	if appraisal.Valid {
		c.Appraisal = decFromDB(appraisal.String)
		c.Appraised = true
	}
	c.Raw = []byte(raw)
	return c, nil
}

func scanContracts(rows *sql.Rows) ([]model.Contract, error) {
	var out []model.Contract
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning contract: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contracts: %w", err)
	}
	return out, nil
}
