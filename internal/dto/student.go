package dto

// ── 学员模块 DTO ──

// CreateStudentRequest 后台手动录入学员
type CreateStudentRequest struct {
	FullName         string  `json:"full_name"         binding:"required,min=1,max=100"`
	Phone            string  `json:"phone"             binding:"required,vnphone"`
	Email            *string `json:"email"             binding:"omitempty,email"`
	Status           string  `json:"status"            binding:"omitempty,oneof=Active Paused Inactive"`
	Birthdate        *string `json:"birthdate"         binding:"omitempty,datetime=2006-01-02"`
	Gender           *string `json:"gender"            binding:"omitempty,max=20"`
	Level            *string `json:"level"             binding:"omitempty,max=50"`
	ParentName       *string `json:"parent_name"       binding:"omitempty,max=100"`
	EmergencyContact *string `json:"emergency_contact" binding:"omitempty,max=50"`
	MedicalNote      *string `json:"medical_note"`
}

// UpdateStudentRequest 更新学员（乐观锁）
type UpdateStudentRequest struct {
	FullName         *string `json:"full_name"         binding:"omitempty,min=1,max=100"`
	Phone            *string `json:"phone"             binding:"omitempty,vnphone"`
	Email            *string `json:"email"             binding:"omitempty,email"`
	Status           *string `json:"status"            binding:"omitempty,oneof=Active Paused Inactive"`
	Birthdate        *string `json:"birthdate"         binding:"omitempty,datetime=2006-01-02"`
	Gender           *string `json:"gender"            binding:"omitempty,max=20"`
	Level            *string `json:"level"             binding:"omitempty,max=50"`
	ParentName       *string `json:"parent_name"       binding:"omitempty,max=100"`
	EmergencyContact *string `json:"emergency_contact" binding:"omitempty,max=50"`
	MedicalNote      *string `json:"medical_note"`
	Version          int     `json:"version"           binding:"required,min=1"`
}

// StudentListRequest 学员列表查询参数
type StudentListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,oneof=Active Paused Inactive"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// StudentResponse 学员信息
type StudentResponse struct {
	ID               string  `json:"id"`
	FullName         string  `json:"full_name"`
	Phone            string  `json:"phone"`
	Email            *string `json:"email,omitempty"`
	Status           string  `json:"status"`
	JoinDate         string  `json:"join_date"`
	Birthdate        *string `json:"birthdate,omitempty"`
	Gender           *string `json:"gender,omitempty"`
	Level            *string `json:"level,omitempty"`
	ParentName       *string `json:"parent_name,omitempty"`
	EmergencyContact *string `json:"emergency_contact,omitempty"`
	MedicalNote      *string `json:"medical_note,omitempty"`
	Version          int     `json:"version"`
	CreatedAt        string  `json:"created_at"`
}

// StudentDetailResponse 学员详情（含会员卡）
type StudentDetailResponse struct {
	StudentResponse
	Memberships []MembershipResponse `json:"memberships"`
}
