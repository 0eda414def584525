// Package heart 心脏病推理核心：特征定义、标签映射与预测器
package heart

// FeatureCount 模型输入特征数量
const FeatureCount = 13

var featureNames = [FeatureCount]string{
	"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg",
	"thalach", "exang", "oldpeak", "slope", "ca", "thal",
}

// FeatureNames 按训练顺序返回特征名
func FeatureNames() []string {
	names := make([]string, FeatureCount)
	copy(names, featureNames[:])
	return names
}

// FeatureVector 模型输入行，可直接作为缓存键
type FeatureVector [FeatureCount]float64

func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// Fields 13项临床输入，仅Oldpeak为小数
type Fields struct {
	Age      int     `json:"age"`
	Sex      int     `json:"sex"`
	Cp       int     `json:"cp"`
	Trestbps int     `json:"trestbps"`
	Chol     int     `json:"chol"`
	Fbs      int     `json:"fbs"`
	Restecg  int     `json:"restecg"`
	Thalach  int     `json:"thalach"`
	Exang    int     `json:"exang"`
	Oldpeak  float64 `json:"oldpeak"`
	Slope    int     `json:"slope"`
	Ca       int     `json:"ca"`
	Thal     int     `json:"thal"`
}

// Vector 按FeatureNames顺序生成特征向量
func (f Fields) Vector() FeatureVector {
	return FeatureVector{
		float64(f.Age),
		float64(f.Sex),
		float64(f.Cp),
		float64(f.Trestbps),
		float64(f.Chol),
		float64(f.Fbs),
		float64(f.Restecg),
		float64(f.Thalach),
		float64(f.Exang),
		f.Oldpeak,
		float64(f.Slope),
		float64(f.Ca),
		float64(f.Thal),
	}
}

// ReferenceFields Cleveland数据集参考样本，用于健康检查和check-model
func ReferenceFields() Fields {
	return Fields{
		Age: 63, Sex: 1, Cp: 3, Trestbps: 145, Chol: 233, Fbs: 1, Restecg: 0,
		Thalach: 150, Exang: 0, Oldpeak: 2.3, Slope: 0, Ca: 0, Thal: 1,
	}
}
