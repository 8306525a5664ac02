package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dance-house/config"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

// 所有 mock 以 map 存储并加锁；条件更新在锁内完成，与数据库的单行原子更新语义一致

// ── Mock AdminUserRepository ──

type mockAdminUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.AdminUser
}

func newMockAdminUserRepo() *mockAdminUserRepo {
	return &mockAdminUserRepo{users: make(map[string]*model.AdminUser)}
}

func (m *mockAdminUserRepo) Create(_ context.Context, u *model.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.AdminUserID == "" {
		u.AdminUserID = fmt.Sprintf("admin-%d", len(m.users)+1)
	}
	cp := *u
	m.users[u.AdminUserID] = &cp
	return nil
}

func (m *mockAdminUserRepo) GetByID(_ context.Context, id string) (*model.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAdminUserRepo) GetByUsername(_ context.Context, username string) (*model.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	mu       sync.Mutex
	seq      int
	students map[string]*model.Student
	inserts  int // 实际插入次数
	failGet  error
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) insertLocked(s *model.Student) {
	m.seq++
	if s.StudentID == "" {
		s.StudentID = fmt.Sprintf("stu-%03d", m.seq)
	}
	if s.Version == 0 {
		s.Version = 1
	}
	cp := *s
	m.students[s.StudentID] = &cp
	m.inserts++
}

func (m *mockStudentRepo) phoneTakenLocked(phone, exceptID string) bool {
	for _, s := range m.students {
		if s.Phone == phone && s.StudentID != exceptID {
			return true
		}
	}
	return false
}

func (m *mockStudentRepo) Create(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phoneTakenLocked(s.Phone, "") {
		return pkgerrors.ErrDuplicateKey
	}
	m.insertLocked(s)
	return nil
}

func (m *mockStudentRepo) CreateIfPhoneAbsent(_ context.Context, s *model.Student) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phoneTakenLocked(s.Phone, "") {
		return false, nil
	}
	m.insertLocked(s)
	return true, nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	if s, ok := m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByPhone(_ context.Context, phone string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, s := range m.students {
		if s.Phone == phone {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) Update(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[s.StudentID]
	if !ok || cur.Version != s.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if m.phoneTakenLocked(s.Phone, s.StudentID) {
		return pkgerrors.ErrDuplicateKey
	}
	s.Version++
	cp := *s
	m.students[s.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.students, id)
	return nil
}

func (m *mockStudentRepo) List(_ context.Context, filters *repository.ListFilters, offset, limit int) ([]model.Student, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Student
	for _, s := range m.students {
		if filters != nil && filters.Status != "" && s.Status != filters.Status {
			continue
		}
		if filters != nil && filters.Keyword != "" &&
			!strings.Contains(strings.ToLower(s.FullName), strings.ToLower(filters.Keyword)) &&
			!strings.Contains(s.Phone, filters.Keyword) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockStudentRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.students)
}

// ── Mock PackageRepository ──

type mockPackageRepo struct {
	mu       sync.Mutex
	packages map[string]*model.Package
}

func newMockPackageRepo() *mockPackageRepo {
	return &mockPackageRepo{packages: make(map[string]*model.Package)}
}

func (m *mockPackageRepo) Create(_ context.Context, p *model.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.PackageID == "" {
		p.PackageID = fmt.Sprintf("pkg-%03d", len(m.packages)+1)
	}
	if p.Version == 0 {
		p.Version = 1
	}
	cp := *p
	m.packages[p.PackageID] = &cp
	return nil
}

func (m *mockPackageRepo) GetByID(_ context.Context, id string) (*model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.packages[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPackageRepo) GetActiveByName(_ context.Context, name string) (*model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.packages {
		if p.IsActive && strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPackageRepo) Update(_ context.Context, p *model.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.packages[p.PackageID]
	if !ok || cur.Version != p.Version {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version++
	cp := *p
	m.packages[p.PackageID] = &cp
	return nil
}

func (m *mockPackageRepo) Delete(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.packages, id)
	return nil
}

func (m *mockPackageRepo) List(_ context.Context, activeOnly bool) ([]model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Package
	for _, p := range m.packages {
		if activeOnly && !p.IsActive {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PackageID < result[j].PackageID })
	return result, nil
}

// ── Mock MembershipRepository ──

type mockMembershipRepo struct {
	mu          sync.Mutex
	seq         int
	memberships map[string]*model.Membership
	students    *mockStudentRepo // 用于模拟 Preload("Student")
	failCreate  error
	failList    error
}

func newMockMembershipRepo(students *mockStudentRepo) *mockMembershipRepo {
	return &mockMembershipRepo{memberships: make(map[string]*model.Membership), students: students}
}

func (m *mockMembershipRepo) withStudent(ms *model.Membership) *model.Membership {
	cp := *ms
	if m.students != nil {
		if st, err := m.students.GetByID(context.Background(), ms.StudentID); err == nil {
			cp.Student = st
		}
	}
	return &cp
}

func (m *mockMembershipRepo) Create(_ context.Context, ms *model.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	if ms.TransactionID != nil {
		for _, existing := range m.memberships {
			if existing.TransactionID != nil && *existing.TransactionID == *ms.TransactionID {
				return pkgerrors.ErrDuplicateKey
			}
		}
	}
	m.seq++
	if ms.MembershipID == "" {
		ms.MembershipID = fmt.Sprintf("mem-%03d", m.seq)
	}
	cp := *ms
	cp.Student = nil
	m.memberships[ms.MembershipID] = &cp
	return nil
}

func (m *mockMembershipRepo) GetByID(_ context.Context, id string) (*model.Membership, error) {
	m.mu.Lock()
	ms, ok := m.memberships[id]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withStudent(ms), nil
}

func (m *mockMembershipRepo) snapshot() []model.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Membership, 0, len(m.memberships))
	for _, ms := range m.memberships {
		result = append(result, *ms)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MembershipID < result[j].MembershipID })
	return result
}

func (m *mockMembershipRepo) List(_ context.Context, filters *repository.ListFilters, offset, limit int) ([]model.Membership, int64, error) {
	var result []model.Membership
	for _, ms := range m.snapshot() {
		if filters != nil && filters.StudentID != "" && ms.StudentID != filters.StudentID {
			continue
		}
		if filters != nil && filters.Status != "" && ms.Status != filters.Status {
			continue
		}
		result = append(result, *m.withStudent(&ms))
	}
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockMembershipRepo) ListByStudent(_ context.Context, studentID string) ([]model.Membership, error) {
	var result []model.Membership
	for _, ms := range m.snapshot() {
		if ms.StudentID == studentID {
			result = append(result, ms)
		}
	}
	return result, nil
}

func (m *mockMembershipRepo) ListUsable(_ context.Context, now time.Time) ([]model.Membership, error) {
	var result []model.Membership
	for _, ms := range m.snapshot() {
		if ms.Usable(now) {
			result = append(result, *m.withStudent(&ms))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].EndDate.Before(result[j].EndDate) })
	return result, nil
}

func (m *mockMembershipRepo) FindUsableForStudent(ctx context.Context, studentID string, now time.Time) (*model.Membership, error) {
	list, _ := m.ListUsable(ctx, now)
	for i := range list {
		if list[i].StudentID == studentID {
			return &list[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMembershipRepo) ListExpiring(ctx context.Context, now, until time.Time) ([]model.Membership, error) {
	if m.failList != nil {
		return nil, m.failList
	}
	usable, _ := m.ListUsable(ctx, now)
	var result []model.Membership
	for _, ms := range usable {
		if ms.EndDate.Before(until) {
			result = append(result, ms)
		}
	}
	return result, nil
}

func (m *mockMembershipRepo) CountByStudent(ctx context.Context, studentID string) (int64, error) {
	list, _ := m.ListByStudent(ctx, studentID)
	return int64(len(list)), nil
}

func (m *mockMembershipRepo) UpdateTerms(_ context.Context, ms *model.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.memberships[ms.MembershipID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Status = ms.Status
	cur.EndDate = ms.EndDate
	cur.UpdatedBy = ms.UpdatedBy
	return nil
}

func (m *mockMembershipRepo) Deduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.memberships[id]
	if !ok || ms.RemainingSessions <= 0 {
		return pkgerrors.ErrConditionNotMet
	}
	ms.RemainingSessions--
	return nil
}

func (m *mockMembershipRepo) Credit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.memberships[id]
	if !ok || ms.RemainingSessions >= ms.TotalSessions {
		return pkgerrors.ErrConditionNotMet
	}
	ms.RemainingSessions++
	return nil
}

func (m *mockMembershipRepo) ExpireLapsed(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, ms := range m.memberships {
		if ms.Status == model.MembershipStatusActive && ms.Lapsed(now) {
			ms.Status = model.MembershipStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockMembershipRepo) remaining(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.memberships[id].RemainingSessions
}

// ── Mock TransactionRepository ──

type mockTransactionRepo struct {
	mu           sync.Mutex
	seq          int
	transactions map[string]*model.Transaction
	// dupOrderCodes 模拟订单号唯一冲突的次数
	dupOrderCodes int
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{transactions: make(map[string]*model.Transaction)}
}

func (m *mockTransactionRepo) Create(_ context.Context, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dupOrderCodes > 0 {
		m.dupOrderCodes--
		return pkgerrors.ErrDuplicateKey
	}
	for _, existing := range m.transactions {
		if existing.OrderCode == t.OrderCode {
			return pkgerrors.ErrDuplicateKey
		}
	}
	m.seq++
	if t.TransactionID == "" {
		t.TransactionID = fmt.Sprintf("txn-%03d", m.seq)
	}
	cp := *t
	m.transactions[t.TransactionID] = &cp
	return nil
}

func (m *mockTransactionRepo) GetByID(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.transactions[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTransactionRepo) GetByOrderCode(_ context.Context, orderCode string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transactions {
		if t.OrderCode == orderCode {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTransactionRepo) all() []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Transaction, 0, len(m.transactions))
	for _, t := range m.transactions {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TransactionID < result[j].TransactionID })
	return result
}

func (m *mockTransactionRepo) List(_ context.Context, filters *repository.ListFilters, offset, limit int) ([]model.Transaction, int64, error) {
	var result []model.Transaction
	for _, t := range m.all() {
		if filters != nil && filters.Status != "" && t.Status != filters.Status {
			continue
		}
		result = append(result, t)
	}
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockTransactionRepo) ListForExport(_ context.Context, from, to time.Time, status string) ([]model.Transaction, error) {
	var result []model.Transaction
	for _, t := range m.all() {
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (m *mockTransactionRepo) TransitionStatus(_ context.Context, id, from, to, processedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok || t.Status != from {
		return pkgerrors.ErrConditionNotMet
	}
	t.Status = to
	t.ProcessedAt = &at
	t.ProcessedBy = &processedBy
	return nil
}

func (m *mockTransactionRepo) MonthlyRevenue(_ context.Context, from, to time.Time, loc *time.Location) ([]repository.MonthlyRevenueRow, error) {
	byMonth := make(map[int]*repository.MonthlyRevenueRow)
	var keys []int
	for _, t := range m.all() {
		if t.Status != model.TransactionStatusCompleted {
			continue
		}
		at := t.CreatedAt
		if t.ProcessedAt != nil {
			at = *t.ProcessedAt
		}
		if at.Before(from) || !at.Before(to) {
			continue
		}
		local := at.In(loc)
		key := local.Year()*100 + int(local.Month())
		row, ok := byMonth[key]
		if !ok {
			row = &repository.MonthlyRevenueRow{Year: local.Year(), Month: int(local.Month()), TotalRevenue: decimal.Zero}
			byMonth[key] = row
			keys = append(keys, key)
		}
		row.TotalRevenue = row.TotalRevenue.Add(t.Amount)
		row.TransactionCount++
	}
	sort.Ints(keys)
	result := make([]repository.MonthlyRevenueRow, 0, len(keys))
	for _, k := range keys {
		result = append(result, *byMonth[k])
	}
	return result, nil
}

func (m *mockTransactionRepo) SetStudent(_ context.Context, id, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.transactions[id]; ok {
		t.StudentID = &studentID
	}
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	mu      sync.Mutex
	seq     int
	records map[string]*model.Attendance
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.Attendance)}
}

func (m *mockAttendanceRepo) CreateIfAbsent(_ context.Context, a *model.Attendance) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.StudentID == a.StudentID && r.ClassID == a.ClassID && r.Date.Equal(a.Date) &&
			r.Status == model.AttendanceStatusPresent {
			return false, nil
		}
	}
	m.seq++
	if a.AttendanceID == "" {
		a.AttendanceID = fmt.Sprintf("att-%03d", m.seq)
	}
	cp := *a
	m.records[a.AttendanceID] = &cp
	return true, nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) Cancel(_ context.Context, id, updatedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Status != model.AttendanceStatusPresent {
		return pkgerrors.ErrConditionNotMet
	}
	r.Status = model.AttendanceStatusCancelled
	r.UpdatedBy = &updatedBy
	return nil
}

func (m *mockAttendanceRepo) all() []model.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Attendance, 0, len(m.records))
	for _, r := range m.records {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AttendanceID < result[j].AttendanceID })
	return result
}

func (m *mockAttendanceRepo) ListByClassAndDate(_ context.Context, classID int64, date time.Time) ([]model.Attendance, error) {
	var result []model.Attendance
	for _, r := range m.all() {
		if r.ClassID == classID && r.Date.Equal(date) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListByStudent(_ context.Context, studentID string, offset, limit int) ([]model.Attendance, int64, error) {
	var result []model.Attendance
	for _, r := range m.all() {
		if r.StudentID == studentID {
			result = append(result, r)
		}
	}
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockAttendanceRepo) ListForExport(_ context.Context, from, to time.Time) ([]model.Attendance, error) {
	var result []model.Attendance
	for _, r := range m.all() {
		if !r.Date.Before(from) && r.Date.Before(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) countPresent() int {
	n := 0
	for _, r := range m.all() {
		if r.Status == model.AttendanceStatusPresent {
			n++
		}
	}
	return n
}

// ── Mock DanceClassRepository ──

type mockDanceClassRepo struct {
	mu      sync.Mutex
	classes map[int64]*model.DanceClass
}

func newMockDanceClassRepo() *mockDanceClassRepo {
	return &mockDanceClassRepo{classes: make(map[int64]*model.DanceClass)}
}

func (m *mockDanceClassRepo) Create(_ context.Context, c *model.DanceClass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ClassID == 0 {
		c.ClassID = int64(len(m.classes) + 1)
	}
	cp := *c
	m.classes[c.ClassID] = &cp
	return nil
}

func (m *mockDanceClassRepo) GetByID(_ context.Context, id int64) (*model.DanceClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.classes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDanceClassRepo) Update(_ context.Context, c *model.DanceClass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.classes[c.ClassID] = &cp
	return nil
}

func (m *mockDanceClassRepo) Delete(_ context.Context, id int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.classes, id)
	return nil
}

func (m *mockDanceClassRepo) List(_ context.Context, activeOnly bool) ([]model.DanceClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.DanceClass
	for _, c := range m.classes {
		if activeOnly && !c.IsActive {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClassID < result[j].ClassID })
	return result, nil
}

// ── 通用辅助 ──

func paginate[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

// mockRepos 一组 mock 仓储及其聚合
type mockRepos struct {
	adminUsers   *mockAdminUserRepo
	students     *mockStudentRepo
	packages     *mockPackageRepo
	memberships  *mockMembershipRepo
	transactions *mockTransactionRepo
	attendance   *mockAttendanceRepo
	classes      *mockDanceClassRepo
	repo         *repository.Repository
}

func newMockRepos() *mockRepos {
	students := newMockStudentRepo()
	m := &mockRepos{
		adminUsers:   newMockAdminUserRepo(),
		students:     students,
		packages:     newMockPackageRepo(),
		memberships:  newMockMembershipRepo(students),
		transactions: newMockTransactionRepo(),
		attendance:   newMockAttendanceRepo(),
		classes:      newMockDanceClassRepo(),
	}
	m.repo = &repository.Repository{
		AdminUser:   m.adminUsers,
		Student:     m.students,
		Package:     m.packages,
		Membership:  m.memberships,
		Transaction: m.transactions,
		Attendance:  m.attendance,
		DanceClass:  m.classes,
	}
	return m
}

// ── Mock NotificationService ──

type mockNotifier struct {
	mu      sync.Mutex
	notices []EnrollmentNotice
	err     error
}

func (n *mockNotifier) SendEnrollmentConfirmation(_ context.Context, notice EnrollmentNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.err
}

// ── 测试环境 ──

// testLoc 固定 UTC+7，避免依赖运行环境的时区数据库
var testLoc = time.FixedZone("ICT", 7*3600)

// testEnv 按 NewService 的方式组装具体 Service，并固定当前时间
type testEnv struct {
	*mockRepos
	studentSvc     *studentService
	resolver       *packageResolver
	membershipSvc  *membershipService
	transactionSvc *transactionService
	enrollment     *enrollmentService
	attendanceSvc  *attendanceService
	notifier       *mockNotifier
}

func newTestEnv(allowDefault bool, now time.Time) *testEnv {
	m := newMockRepos()
	logger := zap.NewNop()
	clock := func() time.Time { return now }

	resolver := newPackageResolver(m.repo, &config.EnrollmentConfig{AllowDefaultPackage: allowDefault}, logger)
	students := newStudentService(m.repo, testLoc, logger)
	students.now = clock
	memberships := newMembershipService(m.repo, resolver, testLoc, logger)
	memberships.now = clock
	transactions := newTransactionService(m.repo, logger)
	transactions.now = clock
	transactions.rnd = func(int64) int64 { return 42 }
	notifier := &mockNotifier{}
	enrollment := newEnrollmentService(m.repo, students, resolver, memberships, transactions, notifier, nil, logger)
	enrollment.now = clock
	attendance := newAttendanceService(m.repo, memberships, testLoc, logger)
	attendance.now = clock

	return &testEnv{
		mockRepos:      m,
		studentSvc:     students,
		resolver:       resolver,
		membershipSvc:  memberships,
		transactionSvc: transactions,
		enrollment:     enrollment,
		attendanceSvc:  attendance,
		notifier:       notifier,
	}
}

// ── 测试数据 ──

func (e *testEnv) seedPackage(name string, sessions int, days *int, price int64, active bool) *model.Package {
	p := &model.Package{
		Name:          name,
		TotalSessions: sessions,
		DurationDays:  days,
		Price:         decimal.NewFromInt(price),
		IsActive:      active,
	}
	_ = e.packages.Create(context.Background(), p)
	return p
}

func (e *testEnv) seedStudent(name, phone string) *model.Student {
	s := &model.Student{FullName: name, Phone: phone, Status: model.StudentStatusActive}
	_ = e.students.Create(context.Background(), s)
	return s
}

func (e *testEnv) seedMembership(studentID string, total, remaining int, end time.Time) *model.Membership {
	ms := &model.Membership{
		StudentID:         studentID,
		PackageName:       "Tháng (8 buổi)",
		TotalSessions:     total,
		RemainingSessions: remaining,
		StartDate:         end.AddDate(0, 0, -30),
		EndDate:           end,
		Status:            model.MembershipStatusActive,
	}
	_ = e.memberships.Create(context.Background(), ms)
	return ms
}

func (e *testEnv) seedClass(name string, active bool) *model.DanceClass {
	c := &model.DanceClass{Name: name, DayOfWeek: 1, StartTime: "18:30", EndTime: "20:00", Capacity: 20, IsActive: active}
	_ = e.classes.Create(context.Background(), c)
	return c
}

func (e *testEnv) seedPendingTransaction(phone, name string, packageID *string, metadata datatypes.JSONMap, amount int64) *model.Transaction {
	t := &model.Transaction{
		OrderCode:      fmt.Sprintf("%d", 1700000000000+int64(len(e.transactions.all()))),
		PackageID:      packageID,
		CustomerName:   name,
		CustomerPhone:  phone,
		Amount:         decimal.NewFromInt(amount),
		PaymentGateway: model.GatewayBankTransfer,
		Status:         model.TransactionStatusPending,
		Metadata:       metadata,
	}
	_ = e.transactions.Create(context.Background(), t)
	return t
}
