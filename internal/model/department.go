package model

// Warehouse is the sentinel department of the central store.
const Warehouse = "WAREHOUSE"

// ExecutiveBoard members may read every department's reports.
const ExecutiveBoard = "Ban Giám đốc"

// Departments is the fixed list of hospital departments.
var Departments = []string{
	ExecutiveBoard,
	"Phòng Công nghệ Thông tin",
	"Phòng kế hoạch tổng hợp",
	"Phòng hành chánh quản trị",
	"Phòng chi đạo tuyến",
	"Phòng điều dưỡng",
	"Phòng kế toán",
	"Phòng Vật tư - Thiết bị Y tế",
	"Khoa Dược",
	"Khoa Nội tim mạch",
	"Khoa Hồi sức tích cực",
	"Khoa hồi sức cấp cứu",
	"Khoa Nội tiết lão học",
	"Khoa Chẩn đoán hình ảnh",
	"Khoa xét nghiệm",
	"Khoa thăm dò chức năng",
	"Khoa khám",
	"Khoa kiểm soát nhiễm khuẩn",
}

var departmentSet = func() map[string]bool {
	m := make(map[string]bool, len(Departments))
	for _, d := range Departments {
		m[d] = true
	}
	return m
}()

// IsDepartment reports whether name is one of the hospital departments.
func IsDepartment(name string) bool { return departmentSet[name] }
