package collector

// DataCell 交给存储引擎的一条数据
// Data 中固定包含 Task、Rule、Url、Time、Data 五个键，其中 Data 为字段名 -> 字段值
type DataCell struct {
	Data map[string]interface{}
}

func (d *DataCell) GetTableName() string {
	return d.GetTaskName()
}

func (d *DataCell) GetTaskName() string {
	name, _ := d.Data["Task"].(string)
	return name
}

// Fields 返回抽取出的字段，不存在时返回 nil
func (d *DataCell) Fields() map[string]interface{} {
	fields, _ := d.Data["Data"].(map[string]interface{})
	return fields
}

type Storage interface {
	Save(datas ...*DataCell) error
	// Flush 将缓冲中尚未写出的数据写出
	Flush() error
}
