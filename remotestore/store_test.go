package remotestore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"finpalette/database"
	"finpalette/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *Store {
	db, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(db)
}

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return New(gormDB), mock
}

func createUser(t *testing.T, s *Store, name string) models.User {
	u := models.User{Username: name, Password: "x", Email: name + "@example.com", DisplayName: name}
	require.NoError(t, s.CreateUser(context.Background(), &u))
	return u
}

func expense(date string, amount int64) models.TransactionInput {
	return models.TransactionInput{Date: date, Type: models.TypeExpense, Amount: amount, CategoryCode: "c01", Description: "午餐"}
}

func TestStore_TransactionPaging(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "alice")
	p, err := s.CreatePalette(ctx, owner.ID, "", "")
	require.NoError(t, err)

	for i := 1; i <= 15; i++ {
		_, err := s.AddTransaction(ctx, expense(fmt.Sprintf("2024-01-%02d", i), int64(i)), owner.ID, p.ID)
		require.NoError(t, err)
	}

	page1, err := s.ListTransactions(ctx, p.ID, 1, owner.ID)
	require.NoError(t, err)
	assert.Len(t, page1, 15)
	assert.Equal(t, "2024-01-15", page1[0].Date)
	assert.Equal(t, "2024-01-01", page1[14].Date)

	page2, err := s.ListTransactions(ctx, p.ID, 2, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, page2)

	total, err := s.CountTransactions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
}

func TestStore_TransactionOrderSameDate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "alice")
	p, err := s.CreatePalette(ctx, owner.ID, "", "")
	require.NoError(t, err)

	first, err := s.AddTransaction(ctx, expense("2024-02-01", 1), owner.ID, p.ID)
	require.NoError(t, err)
	second, err := s.AddTransaction(ctx, expense("2024-02-01", 2), owner.ID, p.ID)
	require.NoError(t, err)

	list, err := s.ListTransactions(ctx, p.ID, 1, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.LocalID, list[0].LocalID, "同一天内后创建的排前面")
	assert.Equal(t, first.LocalID, list[1].LocalID)
}

func TestStore_TransactionCRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	p, err := s.CreatePalette(ctx, alice.ID, "", "")
	require.NoError(t, err)

	memo := "只给自己看"
	in := expense("2024-03-01", 1500)
	in.PrivateMemo = &memo
	added, err := s.AddTransaction(ctx, in, alice.ID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, added.ID)
	assert.Equal(t, p.ID, added.PaletteID)
	require.NotNil(t, added.PrivateMemo)

	// 私密备注只对作者可见
	asBob, err := s.GetTransaction(ctx, p.ID, *added.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, asBob.PrivateMemo)
	asAlice, err := s.GetTransaction(ctx, p.ID, *added.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, memo, *asAlice.PrivateMemo)

	amount := int64(2000)
	updated, err := s.UpdateTransaction(ctx, p.ID, *added.ID, models.TransactionPatch{Amount: &amount}, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, *added.ID, *updated.ID)
	assert.Equal(t, int64(2000), updated.Amount)
	assert.Equal(t, "午餐", updated.Description)

	// 其他成员改不了作者的私密备注
	overwrite := "bob 写的"
	desc := "午饭"
	byBob, err := s.UpdateTransaction(ctx, p.ID, *added.ID, models.TransactionPatch{Description: &desc, PrivateMemo: &overwrite}, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "午饭", byBob.Description)
	assert.Nil(t, byBob.PrivateMemo)
	asAlice, err = s.GetTransaction(ctx, p.ID, *added.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, asAlice.PrivateMemo)
	assert.Equal(t, memo, *asAlice.PrivateMemo)

	negative := int64(-1)
	_, err = s.UpdateTransaction(ctx, p.ID, *added.ID, models.TransactionPatch{Amount: &negative}, alice.ID)
	assert.True(t, errors.Is(err, models.ErrValidation))

	// 其他账本的 ID 不可见
	_, err = s.UpdateTransaction(ctx, "other", *added.ID, models.TransactionPatch{Amount: &amount}, alice.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.RemoveTransaction(ctx, p.ID, *added.ID))
	err = s.RemoveTransaction(ctx, p.ID, *added.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_MalformedRow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	row := models.TransactionRow{PaletteID: "p", UserID: 1, Date: "bad", Type: models.TypeExpense, Amount: 1, CategoryCode: "c01"}
	require.NoError(t, s.DB().Create(&row).Error)

	_, err := s.ListTransactions(ctx, "p", 1, 1)
	assert.True(t, errors.Is(err, ErrMalformedRow))
}

func TestStore_ListTransactionsBetween(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "alice")
	p, err := s.CreatePalette(ctx, owner.ID, "", "")
	require.NoError(t, err)

	for _, d := range []string{"2024-01-31", "2024-02-01", "2024-02-29", "2024-03-01"} {
		_, err := s.AddTransaction(ctx, expense(d, 10), owner.ID, p.ID)
		require.NoError(t, err)
	}
	list, err := s.ListTransactionsBetween(ctx, p.ID, "2024-02-01", "2024-02-29", owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2024-02-29", list[0].Date)
}

func TestStore_ImportBatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "alice")
	p, err := s.CreatePalette(ctx, owner.ID, "", "")
	require.NoError(t, err)

	key := uuid.NewString()
	local := []models.Transaction{
		models.Transaction{LocalID: "l1"}.WithInput(expense("2024-01-01", 1)),
		models.Transaction{LocalID: "l2"}.WithInput(expense("2024-01-02", 2)),
	}

	n, replayed, err := s.ImportBatch(ctx, key, owner.ID, p.ID, local)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, replayed)

	// 同一批次再次导入不会产生重复行
	n, replayed, err = s.ImportBatch(ctx, key, owner.ID, p.ID, local)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, replayed)

	// 批次之后新增的本地记录仍会补入
	local = append(local, models.Transaction{LocalID: "l3"}.WithInput(expense("2024-01-03", 3)))
	n, replayed, err = s.ImportBatch(ctx, key, owner.ID, p.ID, local)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, replayed)

	total, err := s.CountTransactions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	var batch models.MigrationBatch
	require.NoError(t, s.DB().Where("batch_key = ?", key).First(&batch).Error)
	assert.Equal(t, 3, batch.Count)

	_, _, err = s.ImportBatch(ctx, "", owner.ID, p.ID, local)
	assert.Error(t, err)
}

func TestStore_SeedCategoriesIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "alice")
	p, err := s.CreatePalette(ctx, owner.ID, "", "")
	require.NoError(t, err)

	require.NoError(t, s.SeedCategories(ctx, p.ID))
	require.NoError(t, s.SeedCategories(ctx, p.ID))

	cats, err := s.ListCategories(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, cats, len(models.DefaultCategories()))
	seen := map[string]bool{}
	for _, c := range cats {
		assert.False(t, seen[c.Code])
		seen[c.Code] = true
	}
}

func TestStore_CategoryCRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "alice")
	p, err := s.CreatePalette(ctx, owner.ID, "", "")
	require.NoError(t, err)

	_, err = s.AddCategory(ctx, models.Category{PaletteID: p.ID, Code: "c01", Name: "重复"})
	assert.True(t, errors.Is(err, ErrDuplicateCategory))

	cat, err := s.AddCategory(ctx, models.Category{PaletteID: p.ID, Code: "c11", Name: "宠物"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategoryColor, cat.Color)

	hidden := true
	name := "猫粮"
	cat, err = s.UpdateCategory(ctx, p.ID, "c11", models.CategoryUpdate{Name: &name, Hidden: &hidden})
	require.NoError(t, err)
	assert.Equal(t, "猫粮", cat.Name)
	assert.True(t, cat.Hidden)

	_, err = s.UpdateCategory(ctx, p.ID, "c42", models.CategoryUpdate{Name: &name})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.DeleteCategory(ctx, p.ID, "c11"))
	assert.True(t, errors.Is(s.DeleteCategory(ctx, p.ID, "c11"), ErrNotFound))
}

func TestStore_PaletteLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	_, err := s.FindOwnedPalette(ctx, alice.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	p, err := s.CreatePalette(ctx, alice.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPaletteName, p.Name)
	assert.Equal(t, models.DefaultPaletteColor, p.ThemeColor)

	owned, err := s.FindOwnedPalette(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, owned.ID)

	m, err := s.GetMembership(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, m.Role)

	updated, err := s.UpdatePalette(ctx, p.ID, "家庭", "#000000")
	require.NoError(t, err)
	assert.Equal(t, "家庭", updated.Name)
	assert.Equal(t, "#000000", updated.ThemeColor)

	// bob 通过邀请加入后能看到该账本
	inv, err := s.CreateInvitation(ctx, p.ID, alice.ID, time.Now())
	require.NoError(t, err)
	_, err = s.AcceptInvitation(ctx, inv.Code, bob.ID, time.Now())
	require.NoError(t, err)
	palettes, err := s.ListPalettes(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, palettes, 1)
	assert.Equal(t, p.ID, palettes[0].ID)

	_, err = s.AddTransaction(ctx, expense("2024-01-01", 1), alice.ID, p.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeletePalette(ctx, p.ID))

	_, err = s.GetPalette(ctx, p.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	for _, m := range []interface{}{&models.TransactionRow{}, &models.Category{}, &models.PaletteMember{}, &models.PaletteInvitation{}} {
		var n int64
		require.NoError(t, s.DB().Model(m).Where("palette_id = ?", p.ID).Count(&n).Error)
		assert.Zero(t, n)
	}
	assert.True(t, errors.Is(s.DeletePalette(ctx, p.ID), ErrNotFound))
}

func TestStore_Members(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	p, err := s.CreatePalette(ctx, alice.ID, "", "")
	require.NoError(t, err)
	inv, err := s.CreateInvitation(ctx, p.ID, alice.ID, time.Now())
	require.NoError(t, err)
	_, err = s.AcceptInvitation(ctx, inv.Code, bob.ID, time.Now())
	require.NoError(t, err)

	members, err := s.ListMembers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.RoleOwner, members[0].Role)
	assert.Equal(t, "alice", members[0].DisplayName)
	assert.Equal(t, "bob@example.com", members[1].Email)
	assert.Equal(t, models.RoleEditor, members[1].Role)

	m, err := s.UpdateMemberRole(ctx, p.ID, bob.ID, models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, m.Role)

	_, err = s.UpdateMemberRole(ctx, p.ID, bob.ID, models.RoleOwner)
	assert.True(t, errors.Is(err, ErrOwnerImmutable))
	_, err = s.UpdateMemberRole(ctx, p.ID, alice.ID, models.RoleAdmin)
	assert.True(t, errors.Is(err, ErrOwnerImmutable))
	_, err = s.UpdateMemberRole(ctx, p.ID, bob.ID, "root")
	assert.True(t, errors.Is(err, ErrInvalidRole))

	assert.True(t, errors.Is(s.RemoveMember(ctx, p.ID, alice.ID), ErrOwnerCannotLeave))
	require.NoError(t, s.RemoveMember(ctx, p.ID, bob.ID))
	assert.True(t, errors.Is(s.RemoveMember(ctx, p.ID, bob.ID), ErrNotFound))
}

func TestStore_AcceptInvitationRejected(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	carol := createUser(t, s, "carol")
	p, err := s.CreatePalette(ctx, alice.ID, "", "")
	require.NoError(t, err)

	countMembers := func() int64 {
		var n int64
		require.NoError(t, s.DB().Model(&models.PaletteMember{}).Where("palette_id = ?", p.ID).Count(&n).Error)
		return n
	}

	// 不存在
	_, err = s.AcceptInvitation(ctx, "no-such-code", bob.ID, time.Now())
	assert.True(t, errors.Is(err, ErrInvitationInvalid))

	// 已过期
	created := time.Now().Add(-48 * time.Hour)
	expired, err := s.CreateInvitation(ctx, p.ID, alice.ID, created)
	require.NoError(t, err)
	_, err = s.AcceptInvitation(ctx, expired.Code, bob.ID, time.Now())
	assert.True(t, errors.Is(err, ErrInvitationInvalid))
	assert.Equal(t, int64(1), countMembers())

	// 一次性使用
	inv, err := s.CreateInvitation(ctx, p.ID, alice.ID, time.Now())
	require.NoError(t, err)
	got, err := s.AcceptInvitation(ctx, inv.Code, bob.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got)
	_, err = s.AcceptInvitation(ctx, inv.Code, carol.ID, time.Now())
	assert.True(t, errors.Is(err, ErrInvitationInvalid))
	assert.Equal(t, int64(2), countMembers())

	// 已是成员：返回账本，邀请保持可用
	again, err := s.CreateInvitation(ctx, p.ID, alice.ID, time.Now())
	require.NoError(t, err)
	got, err = s.AcceptInvitation(ctx, again.Code, bob.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got)
	stored, err := s.GetInvitation(ctx, again.Code)
	require.NoError(t, err)
	assert.False(t, stored.IsUsed)
	assert.Equal(t, int64(2), countMembers())
}

func TestStore_Users(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "alice")

	dup := models.User{Username: "alice", Password: "x"}
	assert.True(t, errors.Is(s.CreateUser(ctx, &dup), ErrDuplicateUser))

	byName, err := s.FindUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	byEmail, err := s.FindUserByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUser(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_ListTransactionsError(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT .* FROM `transactions`").
		WillReturnError(errors.New("connection refused"))

	_, err := s.ListTransactions(context.Background(), "p1", 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddTransactionError(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `transactions`").
		WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err := s.AddTransaction(context.Background(), expense("2024-01-01", 1), 1, "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())
}
